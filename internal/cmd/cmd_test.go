package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dendrascience/syncfs/config"
	"github.com/dendrascience/syncfs/store"
	"github.com/dendrascience/syncfs/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the CLI with args and returns what it wrote to stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRecordCommands(t *testing.T) {
	for _, mode := range []string{"store", "worker"} {
		t.Run(mode, func(t *testing.T) {
			base := t.TempDir()
			global := []string{"--base", base}
			if mode == "worker" {
				global = append(global, "--worker")
			}
			cli := func(stdin string, args ...string) (string, error) {
				return run(t, stdin, append(args, global...)...)
			}

			_, err := cli("bytesA", "save", "4f1a/doc1")
			require.NoError(t, err)
			_, err = cli("bytesB", "save", "4f1a/doc2")
			require.NoError(t, err)
			_, err = cli("other", "save", "4f1ab/doc1")
			require.NoError(t, err)

			out, err := cli("", "load", "4f1a/doc1")
			require.NoError(t, err)
			assert.Equal(t, "bytesA", out)

			out, err = cli("", "ls", "4f1a")
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			require.Len(t, lines, 2)
			assert.Equal(t, []string{"4f1a/doc1", "6", util.HashBytes([]byte("bytesA"))}, strings.Fields(lines[0]))
			assert.Equal(t, "4f1a/doc2", strings.Fields(lines[1])[0])

			out, err = cli("", "ls")
			require.NoError(t, err)
			assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

			_, err = cli("", "rm-range", "4f1a")
			require.NoError(t, err)
			_, err = cli("", "load", "4f1a/doc2")
			assert.ErrorIs(t, err, errNotFound)
			out, err = cli("", "load", "4f1ab/doc1")
			require.NoError(t, err, "a longer first segment is not under the prefix")
			assert.Equal(t, "other", out)

			_, err = cli("", "remove", "4f1ab/doc1")
			require.NoError(t, err)
			_, err = cli("", "load", "4f1ab/doc1")
			assert.ErrorIs(t, err, errNotFound)
		})
	}
}

func TestSave_FromFile(t *testing.T) {
	base := t.TempDir()
	input := filepath.Join(t.TempDir(), "doc.bin")
	require.NoError(t, os.WriteFile(input, []byte("from file"), 0o644))

	_, err := run(t, "ignored", "save", "--file", input, "--base", base, "z")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(base, store.DefaultRootName, "z", "~"))
	require.NoError(t, err)
	assert.Equal(t, "from file", string(data))
}

func TestInvalidKey(t *testing.T) {
	_, err := run(t, "", "load", "--base", t.TempDir(), "4f1a//doc1")
	assert.ErrorIs(t, err, store.ErrInvalidKey)
}

func TestConfigFile(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.BaseDir = base
	cfg.RootName = "from-config"
	path := filepath.Join(t.TempDir(), "syncfs.yaml")
	require.NoError(t, cfg.Save(path))

	_, err := run(t, "x", "save", "--config", path, "ab/doc")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "from-config", "ab", "~", "doc"))
	require.NoError(t, err)

	_, err = run(t, "y", "save", "--config", path, "--root", "from-flag", "ab/doc")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, "from-flag", "ab", "~", "doc"))
	require.NoError(t, err, "flags override the config file")

	_, err = run(t, "", "load", "--config", path, "--log-level", "loud", "ab/doc")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestConfigCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncfs.yaml")

	out, err := run(t, "", "config", "--root", "custom", "--worker", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.RootName)
	assert.True(t, cfg.Worker)
	assert.Equal(t, config.Default().FanoutThreshold, cfg.FanoutThreshold)

	_, err = run(t, "", "config", "--root", "other", path)
	assert.ErrorIs(t, err, errConfigExists)

	_, err = run(t, "", "config", "--config", path, "--log-level", "debug", "--force", path)
	require.NoError(t, err)
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.RootName, "values from --config are kept")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestSeedCountValidate(t *testing.T) {
	base := t.TempDir()

	out, err := run(t, "", "seed", "--base", base, "--count", "3", "--chunks", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved 6 records across 3 documents")

	metaPath := filepath.Join(t.TempDir(), "metadata.json")
	out, err = run(t, "", "count", "--base", base, "--json", metaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Records: 6")

	data, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	var md util.Metadata
	require.NoError(t, json.Unmarshal(data, &md))
	assert.Equal(t, 6, md.RecordCount)
	assert.Equal(t, 6, md.UniqueContentCount)

	out, err = run(t, "", "validate", "--base", base)
	require.NoError(t, err)
	assert.Contains(t, out, "Errors: 0")

	out, err = run(t, "", "ls", "--base", base)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 6)

	root := filepath.Join(base, store.DefaultRootName)
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray"), []byte("x"), 0o644))
	_, err = run(t, "", "validate", "--base", base)
	assert.ErrorIs(t, err, errInvalidLayout)
}

func TestValidate_Repair(t *testing.T) {
	base := t.TempDir()
	_, err := run(t, "x", "save", "--base", base, "4f1a/doc1")
	require.NoError(t, err)
	root := filepath.Join(base, store.DefaultRootName)
	require.NoError(t, os.WriteFile(filepath.Join(root, "4f", "~.tmp-9"), []byte("x"), 0o644))

	_, err = run(t, "", "validate", "--base", base)
	assert.ErrorIs(t, err, errInvalidLayout)

	out, err := run(t, "", "validate", "--base", base, "--repair")
	require.NoError(t, err)
	assert.Contains(t, out, "Repair removed 1 entries")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version", "--log-level", "loud")
	require.NoError(t, err, "version does not need a valid configuration")
	assert.True(t, strings.HasPrefix(out, "syncfs version "))
}
