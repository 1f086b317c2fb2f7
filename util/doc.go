// Package util inspects the on-disk layout of a syncfs root container.
//
// The store itself only ever goes through package hfs. The helpers here work
// on the local filesystem directly so the CLI can audit a data directory
// without loading it:
//
//   - CreateManifest hashes every record file concurrently and returns a
//     Manifest of keys, sizes, SHA-256 digests and modification times.
//   - Manifest.GenerateMetadata condenses a manifest into record, shard and
//     size totals for count --json.
//   - CountEntries and OversizedDirectories measure directory fan-out
//     against FanoutThreshold.
//   - ValidateLayout and KeyForPath check that every path is the canonical
//     encoding of a key and flag leftovers such as temporary files, empty
//     records and empty directories.
package util
