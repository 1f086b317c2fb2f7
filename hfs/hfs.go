package hfs

import (
	"context"
	"fmt"
)

// Kind tags a directory entry as a container or a leaf record.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Entry is one immediate child of a Directory.
type Entry struct {
	Name string
	Kind Kind
	Size int64 // files only
}

// FS provides the root containers of a hierarchical store.
type FS interface {
	// Root returns the named top-level directory, creating it if absent.
	Root(ctx context.Context, name string) (Directory, error)
}

// Directory is a handle to a container.
//
// Directory and File obtain or create the named child. Asking for a
// directory where a file exists (or the reverse) fails with
// ErrExpectedDirectory or ErrExpectedFile.
type Directory interface {
	Directory(ctx context.Context, name string) (Directory, error)
	File(ctx context.Context, name string) (File, error)
	// Remove deletes the named entry. Removing a missing entry is not an error.
	// A non-empty directory is only removed when recursive is set.
	Remove(ctx context.Context, name string, recursive bool) error
	Entries(ctx context.Context) ([]Entry, error)
}

// File is a handle to a leaf record.
type File interface {
	// Read returns the full contents of the file.
	Read(ctx context.Context) ([]byte, error)
	// Replace swaps the full contents of the file. Readers observe either the
	// old or the new contents, never a mix.
	Replace(ctx context.Context, data []byte) error
}

// EnsureDirectory walks path from dir one component at a time, creating
// every missing level, and returns the last directory.
func EnsureDirectory(ctx context.Context, dir Directory, path []string) (Directory, error) {
	for _, name := range path {
		next, err := dir.Directory(ctx, name)
		if err != nil {
			return nil, err
		}
		dir = next
	}
	return dir, nil
}
