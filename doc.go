// Package main provides the syncfs command-line interface.
//
// syncfs persists document-sync records in a sharded directory tree and
// exposes them through record subcommands, a FUSE mount and layout tooling:
//   - load, save, remove, rm-range, ls: operate on records by key
//   - mount: serve the key space as a FUSE filesystem
//   - count: summarize records and directory fan-out
//   - validate: check the on-disk layout
//   - seed: generate test documents
package main
