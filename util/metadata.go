package util

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dendrascience/syncfs/version"
)

// Metadata summarizes a root container.
type Metadata struct {
	EmptyRecordCount   int       `json:"empty_record_count"`
	NewestRecordTS     time.Time `json:"newest_record_ts"`
	OldestRecordTS     time.Time `json:"oldest_record_ts"`
	RecordCount        int       `json:"record_count"`
	ShardCount         int       `json:"shard_count"`
	SyncfsVersion      string    `json:"syncfs_version"`
	TotalSize          int64     `json:"total_size"`
	UniqueContentCount int       `json:"unique_content_count"`
}

// GetVersion returns the current syncfs version string.
func GetVersion() string {
	return version.GetVersion()
}

// GenerateMetadata creates a Metadata struct from the manifest.
func (m Manifest) GenerateMetadata() Metadata {
	return Metadata{
		EmptyRecordCount:   m.GetEmptyCount(),
		NewestRecordTS:     m.GetNewestFileTS(),
		OldestRecordTS:     m.GetOldestFileTS(),
		RecordCount:        m.GetRecordCount(),
		ShardCount:         m.GetShardCount(),
		SyncfsVersion:      GetVersion(),
		TotalSize:          m.GetTotalSize(),
		UniqueContentCount: m.GetUniqueContentCount(),
	}
}

// Save writes the metadata as JSON. A directory path gets metadata.json
// appended.
func (m Metadata) Save(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "metadata.json")
	}
	return WriteJSONFile(path, m)
}

// Save writes the manifest as JSON. A directory path gets manifest.json
// appended.
func (m Manifest) Save(path string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "manifest.json")
	}
	return WriteJSONFile(path, m)
}
