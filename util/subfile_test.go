package util

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestCountEntries(t *testing.T) {
	testCases := []struct {
		Name  string
		Files int
		Dirs  int
		Count int
	}{
		{Name: "empty", Files: 0, Dirs: 0, Count: 0},
		{Name: "files only", Files: 15, Dirs: 0, Count: 15},
		{Name: "dirs only", Files: 0, Dirs: 4, Count: 4},
		{Name: "mixed", Files: 3, Dirs: 2, Count: 5},
	}
	for _, c := range testCases {
		t.Run(c.Name, func(t *testing.T) {
			dir := t.TempDir()
			for i := 0; i < c.Files; i++ {
				os.Create(filepath.Join(dir, fmt.Sprintf("%d.file", i)))
			}
			for i := 0; i < c.Dirs; i++ {
				os.Mkdir(filepath.Join(dir, fmt.Sprintf("d%d", i)), 0o755)
				// entries of subdirectories are not counted
				os.Create(filepath.Join(dir, fmt.Sprintf("d%d", i), "inner"))
			}
			// in-flight writes are not counted
			os.Create(filepath.Join(dir, "~.tmp-42"))

			count, err := CountEntries(dir)
			if err != nil {
				t.Fatalf("CountEntries() error = %v", err)
			}
			if count != c.Count {
				t.Errorf("Expected Count to be %d but got %d", c.Count, count)
			}
		})
	}
	t.Run("nonexistent path", func(t *testing.T) {
		_, err := CountEntries(filepath.Join(t.TempDir(), "nonexistent"))
		if !os.IsNotExist(err) {
			t.Errorf("Expected error of type IsNotExist but got %v", err)
		}
	})
	t.Run("file instead of directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		os.Create(path)
		_, err := CountEntries(path)
		if err != ErrExpectedDirectory {
			t.Errorf("Expected error of type %v but got %v", ErrExpectedDirectory, err)
		}
	})
}

func TestOversizedDirectories(t *testing.T) {
	root := t.TempDir()
	big := filepath.Join(root, "4f")
	bigger := filepath.Join(root, "4f", "1a")
	os.MkdirAll(bigger, 0o755)
	for i := 0; i < 3; i++ {
		os.Mkdir(filepath.Join(big, fmt.Sprintf("r%d", i)), 0o755)
	}
	for i := 0; i < 5; i++ {
		os.Create(filepath.Join(bigger, fmt.Sprintf("doc%d", i)))
	}

	over, err := OversizedDirectories(root, 2)
	if err != nil {
		t.Fatalf("OversizedDirectories() error = %v", err)
	}
	want := []DirectoryCount{
		{Path: bigger, Entries: 5},
		{Path: big, Entries: 4},
	}
	if len(over) != len(want) {
		t.Fatalf("OversizedDirectories() = %v, want %v", over, want)
	}
	for i := range want {
		if over[i] != want[i] {
			t.Errorf("OversizedDirectories()[%d] = %v, want %v", i, over[i], want[i])
		}
	}
}
