// Package store implements the syncfs storage core: a key/value byte store
// with prefix-range operations on top of a hierarchical file store.
//
// Keys are sequences of string segments. On disk a key is addressed by its
// Path, which shards records by the first two characters of the first
// segment:
//
//	["4f1a", "doc1"]  ->  <root>/4f/1a/doc1
//
// so no single directory collects every document.
//
// A Store keeps three caches for its whole lifetime:
//   - a byte cache of record payloads, indexed by Key.CacheKey
//   - a directory handle cache and a file handle cache, indexed by path
//
// Reads consult the byte cache before touching the store; writes update it
// before the store. Handles at or below a removed path are dropped so a
// later save recreates the missing directories.
//
// A zero-length record is the same as no record: Load reports it absent and
// LoadRange skips it. Load on a missing key leaves an empty file behind, the
// same way every handle lookup creates what it asks for.
package store
