package util

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dendrascience/syncfs/hfs"
)

// DirectoryCount is a directory and the number of entries directly in it.
type DirectoryCount struct {
	Path    string `json:"path"`
	Entries int    `json:"entries"`
}

// CountEntries returns the number of entries directly inside path, not
// counting temporary files left by interrupted writes.
func CountEntries(path string) (count int, err error) {
	var info os.FileInfo
	info, err = os.Stat(path)
	if err != nil {
		return
	}
	if !info.IsDir() {
		err = ErrExpectedDirectory
		return
	}
	var files []os.DirEntry
	files, err = os.ReadDir(path)
	if err != nil {
		return
	}
	for _, f := range files {
		if hfs.IsTempName(f.Name()) {
			continue
		}
		count++
	}
	return
}

// OversizedDirectories walks root and returns every directory holding more
// than target entries, largest first.
func OversizedDirectories(root string, target int) ([]DirectoryCount, error) {
	var over []DirectoryCount
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		n, err := CountEntries(path)
		if err != nil {
			return err
		}
		if n > target {
			over = append(over, DirectoryCount{Path: path, Entries: n})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(over, func(i, j int) bool {
		if over[i].Entries != over[j].Entries {
			return over[i].Entries > over[j].Entries
		}
		return over[i].Path < over[j].Path
	})
	return over, nil
}
