package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/dendrascience/syncfs/hfs"
	"github.com/dendrascience/syncfs/store"
)

// FanoutThreshold is the default number of entries per directory above which
// count and validate complain.
// recommendation for ext3 is no more than 32000 files per directory
// so if you increase this, don't increase it by too much
const FanoutThreshold = 5000

type manifestJob struct {
	path string
	rel  string
	key  store.Key
}

func manifestWorker(jobs <-chan manifestJob, c chan<- ManifestEntry, errChan chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		me, err := CreateManifestEntry(j.path, j.rel, j.key)
		if err != nil {
			errChan <- err
			continue
		}
		c <- me
	}
}

// CreateManifest hashes every record file below root, the on-disk directory
// of a root container. Files whose path does not decode to a key are skipped;
// ValidateLayout reports them.
func CreateManifest(root string) (Manifest, error) {
	workers := runtime.NumCPU()
	jobs := make(chan manifestJob, workers)
	entries := make(chan ManifestEntry, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	// Start workers
	wg.Add(workers)
	for range workers {
		go manifestWorker(jobs, entries, errs, &wg)
	}

	// Start walker
	var walkErr error
	go func() {
		defer close(jobs)
		walkErr = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || hfs.IsTempName(d.Name()) {
				return nil
			}
			key, err := KeyForPath(root, path)
			if err != nil {
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			jobs <- manifestJob{path: path, rel: rel, key: key}
			return nil
		})
	}()

	go func() {
		wg.Wait()
		close(entries)
		close(errs)
	}()

	var (
		m        Manifest
		failures []error
		entryc   <-chan ManifestEntry = entries
		errc     <-chan error         = errs
	)
	for entryc != nil || errc != nil {
		select {
		case me, ok := <-entryc:
			if !ok {
				entryc = nil
				continue
			}
			m.Add(me)
		case err, ok := <-errc:
			if !ok {
				errc = nil
				continue
			}
			switch {
			case errors.Is(err, os.ErrNotExist):
				// removed while walking
			case errors.Is(err, ErrUnexpectedSymlink):
			default:
				failures = append(failures, err)
			}
		}
	}
	if walkErr != nil {
		failures = append(failures, fmt.Errorf("error walking path %s: %w", root, walkErr))
	}
	if len(failures) > 0 {
		return Manifest{}, errors.Join(failures...)
	}
	m.Sort()
	return m, nil
}

// WriteJSONFile writes any value as JSON to the specified file path.
// It creates the file and encodes the value using the standard JSON encoder.
func WriteJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Hashes a file and returns the hash as a hex string
func GetFileHash(path string) (hash string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", ErrExpectedFile
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return GetHash(file)
}

// GetHash calculates the SHA-256 hash of data from an io.Reader.
// It returns the hash as a hexadecimal string.
func GetHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// HashBytes is GetHash for an in-memory record.
func HashBytes(data []byte) string {
	hash, _ := GetHash(bytes.NewReader(data))
	return hash
}
