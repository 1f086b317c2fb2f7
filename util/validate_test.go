package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dendrascience/syncfs/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyForPath(t *testing.T) {
	root := "/data/automerge-repo-data"
	tests := []struct {
		name    string
		rel     []string
		want    store.Key
		wantErr bool
	}{
		{name: "sharded", rel: []string{"4f", "1a", "doc1"}, want: store.Key{"4f1a", "doc1"}},
		{name: "single segment", rel: []string{"4f", "1a"}, want: store.Key{"4f1a"}},
		{name: "short first segment", rel: []string{"z", "~"}, want: store.Key{"z"}},
		{name: "escaped dot segment", rel: []string{"ab", "~", "~.."}, want: store.Key{"ab", ".."}},
		{name: "too shallow", rel: []string{"stray"}, wantErr: true},
		{name: "short shard with remainder", rel: []string{"q", "r", "doc"}, wantErr: true},
		{name: "long shard", rel: []string{"abc", "d"}, wantErr: true},
		{name: "unescaped tilde", rel: []string{"ab", "~cd"}, wantErr: true},
		{name: "empty later segment", rel: []string{"ab", "cd", "~"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(append([]string{root}, tt.rel...)...)
			got, err := KeyForPath(root, path)
			if tt.wantErr {
				if !errors.Is(err, ErrNonCanonicalPath) {
					t.Errorf("KeyForPath() error = %v, want ErrNonCanonicalPath", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("KeyForPath() unexpected error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("KeyForPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateLayout_Clean(t *testing.T) {
	root := seedLayout(t, map[string]string{
		"4f1a/doc1": "one",
		"4f1a/doc2": "two",
		"z":         "three",
		"ab/..":     "four",
	})

	issues, err := ValidateLayout(root, FanoutThreshold)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.False(t, HasErrors(issues))
}

func TestValidateLayout_Problems(t *testing.T) {
	root := seedLayout(t, map[string]string{"4f1a/doc1": "one"})
	write := func(data []byte, names ...string) {
		path := filepath.Join(append([]string{root}, names...)...)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	write([]byte("partial"), "4f", "1a", "~.tmp-123")
	write([]byte("x"), "abc", "d", "x")
	write([]byte("x"), "stray")
	write([]byte("x"), "q", "r", "doc")
	write(nil, "em", "pty", "doc")
	require.NoError(t, os.Mkdir(filepath.Join(root, "ee"), 0o755))

	issues, err := ValidateLayout(root, FanoutThreshold)
	require.NoError(t, err)

	got := make(map[string]Severity)
	for _, i := range issues {
		got[i.Path] = i.Severity
	}
	assert.Equal(t, map[string]Severity{
		filepath.Join("4f", "1a", "~.tmp-123"): SeverityError,
		"abc":                                  SeverityError,
		filepath.Join("abc", "d", "x"):         SeverityError,
		"ee":                                   SeverityWarning,
		filepath.Join("em", "pty", "doc"):      SeverityWarning,
		filepath.Join("q", "r", "doc"):         SeverityError,
		"stray":                                SeverityError,
	}, got)
	assert.True(t, HasErrors(issues))
	assert.IsIncreasing(t, paths(issues))
}

func TestValidateLayout_Fanout(t *testing.T) {
	root := seedLayout(t, map[string]string{
		"4f1a/doc1": "one",
		"4f1a/doc2": "two",
		"4f1a/doc3": "three",
	})

	issues, err := ValidateLayout(root, 2)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, filepath.Join("4f", "1a"), issues[0].Path)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
	assert.False(t, HasErrors(issues))
}

func TestRepairLayout(t *testing.T) {
	root := seedLayout(t, map[string]string{"4f1a/doc1": "one"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "4f", "1a", "~.tmp-1"), []byte("partial"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ab", "cd", "ef"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "gh"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "gh", "~.tmp-2"), nil, 0o644))

	removed, err := RepairLayout(root)
	require.NoError(t, err)
	// two temp files, ab/cd/ef, ab/cd, ab, gh
	assert.Equal(t, 6, removed)

	issues, err := ValidateLayout(root, FanoutThreshold)
	require.NoError(t, err)
	assert.Empty(t, issues)

	data, err := os.ReadFile(filepath.Join(root, "4f", "1a", "doc1"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func paths(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Path
	}
	return out
}
