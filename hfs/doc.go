// Package hfs describes the hierarchical file store that syncfs persists into.
//
// A store is a tree of directories and leaf files reached through opaque
// handles. Handles are obtained with get-or-create semantics: asking a
// Directory for a child that does not exist creates it. Files are read and
// replaced whole.
//
// Two backends are provided:
//   - OS: directories and files on the local filesystem. Entry names are
//     escaped so the empty name and the dot names can be stored, and Replace
//     is atomic through a temp file and rename.
//   - Memory: an in-process tree, used by tests and by callers that want a
//     volatile store.
package hfs
