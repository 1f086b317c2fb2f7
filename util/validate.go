package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dendrascience/syncfs/hfs"
	"github.com/dendrascience/syncfs/store"
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Issue is one problem found by ValidateLayout.
type Issue struct {
	Path     string   `json:"path"` // relative to the root container
	Severity Severity `json:"severity"`
	Problem  string   `json:"problem"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Problem)
}

// HasErrors reports whether any issue is more than a warning.
func HasErrors(issues []Issue) bool {
	return slices.ContainsFunc(issues, func(i Issue) bool { return i.Severity == SeverityError })
}

// KeyForPath decodes the file at path, below the root container directory
// root, into its key. Paths that EncodePath would never produce fail with
// ErrNonCanonicalPath.
func KeyForPath(root, path string) (store.Key, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return nil, err
	}
	names := strings.Split(rel, string(filepath.Separator))
	p := make(store.Path, len(names))
	for i, name := range names {
		p[i] = hfs.UnescapeName(name)
		if escaped, err := hfs.EscapeName(p[i]); err != nil || escaped != name {
			return nil, fmt.Errorf("%w: %s: %q is not an escaped name", ErrNonCanonicalPath, rel, name)
		}
	}
	key, err := store.DecodePath(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNonCanonicalPath, rel, err)
	}
	if !slices.Equal(store.EncodePath(key), p) {
		return nil, fmt.Errorf("%w: %s: shard split does not match key %q", ErrNonCanonicalPath, rel, key.String())
	}
	return key, nil
}

// ValidateLayout checks the on-disk layout below root, the directory of a
// root container, and returns every problem found sorted by path.
func ValidateLayout(root string, threshold int) ([]Issue, error) {
	var issues []Issue
	report := func(rel string, sev Severity, format string, args ...any) {
		issues = append(issues, Issue{Path: rel, Severity: sev, Problem: fmt.Sprintf(format, args...)})
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := d.Name()

		switch {
		case rel == ".":
		case d.Type()&fs.ModeSymlink != 0:
			report(rel, SeverityError, "unexpected symlink")
			return nil
		case hfs.IsTempName(name):
			report(rel, SeverityError, "leftover temporary file from an interrupted write")
			return nil
		}

		if d.IsDir() {
			if rel != "." && !strings.ContainsRune(rel, filepath.Separator) {
				if n := utf8.RuneCountInString(hfs.UnescapeName(name)); n < 1 || n > 2 {
					report(rel, SeverityError, "shard directory name must be 1 or 2 characters, got %d", n)
				}
			}
			n, err := CountEntries(path)
			if err != nil {
				return err
			}
			switch {
			case n == 0 && rel != ".":
				report(rel, SeverityWarning, "empty directory")
			case n > threshold:
				report(rel, SeverityWarning, "directory has %d entries, above the fan-out threshold of %d", n, threshold)
			}
			return nil
		}

		if _, err := KeyForPath(root, path); err != nil {
			report(rel, SeverityError, "%v", err)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			report(rel, SeverityWarning, "empty record, treated as absent")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking path %s: %w", root, err)
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return issues, nil
}

// RepairLayout removes leftover temporary files, then every empty directory
// below root, deepest first. root itself is kept. It returns the number of
// entries removed.
func RepairLayout(root string) (int, error) {
	var temps, dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case path == root:
		case d.IsDir():
			dirs = append(dirs, path)
		case hfs.IsTempName(d.Name()):
			temps = append(temps, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error walking path %s: %w", root, err)
	}

	removed := 0
	for _, p := range temps {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	// WalkDir visits parents before children
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			return removed, err
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dirs[i]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
