package hfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// tempPrefix marks in-flight Replace writes. EscapeName never produces it.
const tempPrefix = "~.tmp-"

// OS is an FS rooted at a directory of the local filesystem.
type OS struct {
	Base string // directory holding the root containers
}

// NewOS returns an OS filesystem rooted at base. The base directory is
// created on first use of Root.
func NewOS(base string) *OS {
	return &OS{Base: base}
}

func (o *OS) Root(ctx context.Context, name string) (Directory, error) {
	if err := os.MkdirAll(o.Base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", o.Base, err)
	}
	base := &osDir{path: o.Base}
	return base.Directory(ctx, name)
}

type osDir struct {
	path string
}

type osFile struct {
	path string
}

// EscapeName maps a store name to an on-disk name. The empty name, the dot
// names and names starting with '~' are prefixed so every store name is
// representable and the mapping stays injective.
func EscapeName(name string) (string, error) {
	if strings.ContainsAny(name, "/\x00") || strings.ContainsRune(name, filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	switch {
	case name == "":
		return "~", nil
	case name == "." || name == ".." || strings.HasPrefix(name, "~"):
		return "~" + name, nil
	}
	return name, nil
}

// UnescapeName reverses EscapeName.
func UnescapeName(name string) string {
	if name == "~" {
		return ""
	}
	return strings.TrimPrefix(name, "~")
}

func (d *osDir) child(name string) (string, error) {
	escaped, err := EscapeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(d.path, escaped), nil
}

func (d *osDir) Directory(_ context.Context, name string) (Directory, error) {
	p, err := d.child(name)
	if err != nil {
		return nil, err
	}
	err = os.Mkdir(p, 0o755)
	if errors.Is(err, fs.ErrExist) {
		info, statErr := os.Stat(p)
		if statErr != nil {
			return nil, statErr
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: %w", p, ErrExpectedDirectory)
		}
		return &osDir{path: p}, nil
	}
	if err != nil {
		return nil, err
	}
	return &osDir{path: p}, nil
}

func (d *osDir) File(_ context.Context, name string) (File, error) {
	p, err := d.child(name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
				return nil, fmt.Errorf("%s: %w", p, ErrExpectedFile)
			}
		}
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", p, ErrExpectedFile)
	}
	return &osFile{path: p}, nil
}

func (d *osDir) Remove(_ context.Context, name string, recursive bool) error {
	p, err := d.child(name)
	if err != nil {
		return err
	}
	if recursive {
		return os.RemoveAll(p)
	}
	err = os.Remove(p)
	switch {
	case err == nil, errors.Is(err, fs.ErrNotExist):
		return nil
	case isNotEmpty(p):
		return fmt.Errorf("%s: %w", p, ErrDirectoryNotEmpty)
	}
	return err
}

func isNotEmpty(p string) bool {
	entries, err := os.ReadDir(p)
	return err == nil && len(entries) > 0
}

func (d *osDir) Entries(_ context.Context) ([]Entry, error) {
	dirents, err := os.ReadDir(d.path)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if IsTempName(de.Name()) {
			continue
		}
		e := Entry{Name: UnescapeName(de.Name()), Kind: KindFile}
		if de.IsDir() {
			e.Kind = KindDirectory
		} else {
			info, err := de.Info()
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// IsTempName reports whether an on-disk name belongs to an unfinished Replace.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix)
}

func (f *osFile) Read(_ context.Context) ([]byte, error) {
	return os.ReadFile(f.path)
}

// Replace writes to a temp file next to the target and renames it into place.
func (f *osFile) Replace(_ context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}
