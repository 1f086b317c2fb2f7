// Package fusefs serves a syncfs store as a FUSE filesystem.
//
// Every key segment becomes a path component: the mount root lists the
// first key segments, a directory is a key prefix and a regular file is one
// record. Reading a file loads the record, and writing it buffers the new
// payload until flush, when the whole buffer is saved in a single replace.
// Removing a file removes the record; removing an empty directory removes
// the prefix.
//
// Directories made with mkdir exist only in memory until a record is
// created below them, since the store has no notion of an empty prefix.
// Likewise a file that is created, or flushed, with no data is tracked in
// memory: the store treats a zero-length record as absent.
//
// The filesystem works on any Backend, so it can sit directly on a
// *store.Store or on a *proxy.Proxy worker.
package fusefs
