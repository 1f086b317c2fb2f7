package proxy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dendrascience/syncfs/hfs"
	"github.com/dendrascience/syncfs/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkMap(chunks []store.Chunk) map[string]string {
	out := make(map[string]string, len(chunks))
	for _, c := range chunks {
		out[c.Key.String()] = string(c.Data)
	}
	return out
}

func TestProxy_Operations(t *testing.T) {
	ctx := context.Background()
	p := Open(hfs.NewMemory(), nil)
	defer p.Close()

	require.NoError(t, p.Save(ctx, store.Key{"4f1a", "doc1"}, []byte("bytesA")))
	require.NoError(t, p.Save(ctx, store.Key{"4f1a", "doc2"}, []byte("bytesB")))

	data, ok, err := p.Load(ctx, store.Key{"4f1a", "doc1"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bytesA", string(data))

	chunks, err := p.LoadRange(ctx, store.Key{"4f1a"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"4f1a/doc1": "bytesA", "4f1a/doc2": "bytesB"}, chunkMap(chunks))

	roots, err := p.Roots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"4f1a"}, roots)

	entries, err := p.List(ctx, store.Key{"4f1a"})
	require.NoError(t, err)
	assert.Equal(t, []store.Entry{{Name: "doc1"}, {Name: "doc2"}}, entries)

	stats, err := p.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CachedKeys, "caching lives in the worker's store")

	require.NoError(t, p.Remove(ctx, store.Key{"4f1a", "doc1"}))
	_, ok, err = p.Load(ctx, store.Key{"4f1a", "doc1"})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.RemoveRange(ctx, store.Key{"4f1a"}))
	chunks, err = p.LoadRange(ctx, store.Key{"4f1a"})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, ok, err = p.Load(ctx, store.Key{"zz", "missing"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProxy_CopiesPayloads(t *testing.T) {
	ctx := context.Background()
	p := Open(hfs.NewMemory(), nil)
	defer p.Close()

	payload := []byte("original")
	require.NoError(t, p.Save(ctx, store.Key{"4f1a", "doc1"}, payload))
	payload[0] = 'X'

	data, _, err := p.Load(ctx, store.Key{"4f1a", "doc1"})
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestProxy_WaitsForConstruction(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	p := New(func(ctx context.Context) (*store.Store, error) {
		<-release
		return store.Open(ctx, hfs.NewMemory())
	})
	defer p.Close()

	done := make(chan error, 1)
	go func() {
		done <- p.Save(ctx, store.Key{"4f1a", "doc1"}, []byte("x"))
	}()

	select {
	case err := <-done:
		t.Fatalf("Save returned before the store existed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Save never completed after construction")
	}
}

func TestProxy_ConstructionFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")
	p := New(func(context.Context) (*store.Store, error) { return nil, boom })
	defer p.Close()

	_, _, err := p.Load(ctx, store.Key{"4f1a", "doc1"})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, p.Save(ctx, store.Key{"4f1a", "doc1"}, []byte("x")), boom)
}

func TestProxy_Closed(t *testing.T) {
	ctx := context.Background()
	p := Open(hfs.NewMemory(), nil)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close(), "closing twice is harmless")

	_, _, err := p.Load(ctx, store.Key{"4f1a", "doc1"})
	assert.ErrorIs(t, err, ErrChannelClosed)
	assert.ErrorIs(t, p.Save(ctx, store.Key{"4f1a", "doc1"}, []byte("x")), ErrChannelClosed)
	_, err = p.LoadRange(ctx, store.Key{"4f1a"})
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestProxy_RemoteErrorsUnchanged(t *testing.T) {
	ctx := context.Background()
	p := Open(hfs.NewMemory(), nil)
	defer p.Close()

	assert.ErrorIs(t, p.Save(ctx, store.Key{}, []byte("x")), store.ErrEmptyKey)

	require.NoError(t, p.Save(ctx, store.Key{"4f1a", "leaf"}, []byte("x")))
	_, err := p.LoadRange(ctx, store.Key{"4f1a", "leaf"})
	assert.ErrorIs(t, err, hfs.ErrExpectedDirectory)
}

func TestProxy_ContextCanceledBeforeReady(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p := New(func(ctx context.Context) (*store.Store, error) {
		<-release
		return store.Open(ctx, hfs.NewMemory())
	})
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := p.Load(ctx, store.Key{"4f1a", "doc1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProxy_Concurrent(t *testing.T) {
	ctx := context.Background()
	p := Open(hfs.NewMemory(), nil)
	defer p.Close()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := store.Key{"ab12", string(rune('a' + i%26)), string(rune('A' + i/26))}
			if err := p.Save(ctx, key, []byte(key.String())); err != nil {
				t.Errorf("Save(%s) error = %v", key, err)
			}
		}()
	}
	wg.Wait()

	chunks, err := p.LoadRange(ctx, store.Key{"ab12"})
	require.NoError(t, err)
	assert.Len(t, chunks, 50)
	for _, c := range chunks {
		assert.Equal(t, c.Key.String(), string(c.Data))
	}
}
