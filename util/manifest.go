package util

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"time"

	"github.com/dendrascience/syncfs/store"
)

type (
	ManifestEntry struct {
		Key      string    `json:"key"`      // slash separated record key
		Path     string    `json:"path"`     // on-disk path relative to the root container
		Size     int64     `json:"size"`     // size of the record in bytes
		Hash     string    `json:"sha256"`   // hex SHA-256 of the record
		Modified time.Time `json:"modified"` // modification time of the file
	}
	Manifest struct {
		entries []ManifestEntry
		sorted  bool
	}
)

func (m *Manifest) UnmarshalJSON(data []byte) error {
	var aux struct {
		Entries []ManifestEntry `json:"entries"`
		Sorted  bool            `json:"sorted"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.entries = aux.Entries
	m.sorted = aux.Sorted
	return nil
}

func (m Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Entries []ManifestEntry `json:"entries"`
		Sorted  bool            `json:"sorted"`
	}{
		Entries: m.entries,
		Sorted:  m.sorted,
	})
}

func (m Manifest) Iterate(yield func(ManifestEntry) bool) {
	for _, entry := range m.entries {
		if !yield(entry) {
			return
		}
	}
}

func (m *Manifest) Add(me ManifestEntry) {
	m.sorted = false
	m.entries = append(m.entries, me)
}

func (m Manifest) get(index int) ManifestEntry {
	if index < 0 || index >= len(m.entries) {
		return ManifestEntry{}
	}
	return m.entries[index]
}

// Sort orders entries by modification time, then by key.
func (m *Manifest) Sort() {
	sort.SliceStable(m.entries, func(i, j int) bool {
		a, b := m.entries[i], m.entries[j]
		if !a.Modified.Equal(b.Modified) {
			return a.Modified.Before(b.Modified)
		}
		return a.Key < b.Key
	})
	m.sorted = true
}

func (m Manifest) Len() int {
	return len(m.entries)
}

// Returns the first modification time, sorting a copy if needed.
func (m Manifest) GetOldestFileTS() time.Time {
	if m.Len() == 0 {
		return time.Time{}
	}
	if !m.sorted {
		m = m.sortedCopy()
	}
	return m.get(0).Modified
}

// Does the opposite of GetOldestFileTS
func (m Manifest) GetNewestFileTS() time.Time {
	if m.Len() == 0 {
		return time.Time{}
	}
	if !m.sorted {
		m = m.sortedCopy()
	}
	return m.get(m.Len() - 1).Modified
}

func (m Manifest) sortedCopy() Manifest {
	c := Manifest{entries: slices.Clone(m.entries)}
	c.Sort()
	return c
}

// GetRecordCount returns the number of non-empty records. Empty files are
// treated as absent by the store.
func (m Manifest) GetRecordCount() int {
	n := 0
	for e := range m.Iterate {
		if e.Size > 0 {
			n++
		}
	}
	return n
}

// GetEmptyCount returns the number of zero-length files.
func (m Manifest) GetEmptyCount() int {
	return m.Len() - m.GetRecordCount()
}

// GetUniqueContentCount returns the number of content-unique non-empty records
func (m Manifest) GetUniqueContentCount() int {
	hashes := make(map[string]bool)
	for e := range m.Iterate {
		if e.Size > 0 {
			hashes[e.Hash] = true
		}
	}
	return len(hashes)
}

// GetShardCount returns the number of distinct shard directories holding files.
func (m Manifest) GetShardCount() int {
	shards := make(map[string]bool)
	for e := range m.Iterate {
		key, err := store.ParseKey(e.Key)
		if err != nil {
			continue
		}
		shards[store.EncodePath(key)[0]] = true
	}
	return len(shards)
}

func (m Manifest) GetTotalSize() int64 {
	var total int64
	for e := range m.Iterate {
		total += e.Size
	}
	return total
}

// CreateManifestEntry describes the record file at path. rel is the path
// relative to the root container and key the key it decodes to.
func CreateManifestEntry(path, rel string, key store.Key) (ManifestEntry, error) {
	var me ManifestEntry
	info, err := os.Lstat(path)
	if err != nil {
		return me, err
	}
	if info.Mode()&os.ModeSymlink == os.ModeSymlink {
		return me, fmt.Errorf("%w: %s", ErrUnexpectedSymlink, path)
	}
	if info.IsDir() {
		return me, ErrExpectedFile
	}
	hash, err := GetFileHash(path)
	if err != nil {
		return me, err
	}
	me.Key = key.String()
	me.Path = rel
	me.Size = info.Size()
	me.Hash = hash
	me.Modified = info.ModTime()
	return me, nil
}
