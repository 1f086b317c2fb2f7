package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dendrascience/syncfs/hfs"
)

// handleCache memoizes directory and file handles by path. Concurrent misses
// on the same path may resolve it twice; the store backend treats repeated
// creation as a no-op, so the later handle simply replaces the earlier one.
type handleCache struct {
	root  hfs.Directory
	mu    sync.RWMutex
	dirs  map[string]hfs.Directory
	files map[string]hfs.File
}

func newHandleCache(root hfs.Directory) *handleCache {
	return &handleCache{
		root:  root,
		dirs:  make(map[string]hfs.Directory),
		files: make(map[string]hfs.File),
	}
}

func (h *handleCache) cachedDir(pk string) (hfs.Directory, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	d, ok := h.dirs[pk]
	return d, ok
}

func (h *handleCache) cachedFile(pk string) (hfs.File, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	f, ok := h.files[pk]
	return f, ok
}

// directoryHandle returns the directory at p, creating every missing level.
// The walk resumes from the deepest cached ancestor.
func (h *handleCache) directoryHandle(ctx context.Context, p Path) (hfs.Directory, error) {
	if len(p) == 0 {
		return h.root, nil
	}
	pk := pathKey(p)
	if d, ok := h.cachedDir(pk); ok {
		return d, nil
	}
	from, i := h.root, len(p)-1
	for ; i > 0; i-- {
		if d, ok := h.cachedDir(pathKey(p[:i])); ok {
			from = d
			break
		}
	}
	d, err := hfs.EnsureDirectory(ctx, from, p[i:])
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory %s: %w", pk, err)
	}
	h.mu.Lock()
	h.dirs[pk] = d
	h.mu.Unlock()
	return d, nil
}

// lookupDirectory is directoryHandle without creation: ok is false when a
// level of p does not exist.
func (h *handleCache) lookupDirectory(ctx context.Context, p Path) (d hfs.Directory, ok bool, err error) {
	if len(p) == 0 {
		return h.root, true, nil
	}
	pk := pathKey(p)
	if d, ok := h.cachedDir(pk); ok {
		return d, true, nil
	}
	parent, ok, err := h.lookupDirectory(ctx, p[:len(p)-1])
	if err != nil || !ok {
		return nil, false, err
	}
	entries, err := parent.Entries(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list %s: %w", pathKey(p[:len(p)-1]), err)
	}
	name := p[len(p)-1]
	i := slices.IndexFunc(entries, func(e hfs.Entry) bool { return e.Name == name })
	switch {
	case i < 0:
		return nil, false, nil
	case entries[i].Kind != hfs.KindDirectory:
		return nil, false, fmt.Errorf("%s: %w", pk, hfs.ErrExpectedDirectory)
	}
	d, err = parent.Directory(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve directory %s: %w", pk, err)
	}
	h.mu.Lock()
	h.dirs[pk] = d
	h.mu.Unlock()
	return d, true, nil
}

// fileHandle returns the file at p, creating it and its parents if absent.
func (h *handleCache) fileHandle(ctx context.Context, p Path) (hfs.File, error) {
	pk := pathKey(p)
	if f, ok := h.cachedFile(pk); ok {
		return f, nil
	}
	parent, err := h.directoryHandle(ctx, p[:len(p)-1])
	if err != nil {
		return nil, err
	}
	f, err := parent.File(ctx, p[len(p)-1])
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", pk, err)
	}
	h.mu.Lock()
	h.files[pk] = f
	h.mu.Unlock()
	return f, nil
}

// invalidate forgets the handles at p and below it.
func (h *handleCache) invalidate(p Path) {
	pk := pathKey(p)
	below := pk + "/"
	h.mu.Lock()
	defer h.mu.Unlock()
	for k := range h.dirs {
		if k == pk || strings.HasPrefix(k, below) {
			delete(h.dirs, k)
		}
	}
	for k := range h.files {
		if k == pk || strings.HasPrefix(k, below) {
			delete(h.files, k)
		}
	}
}

func (h *handleCache) stats() (dirs, files int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.dirs), len(h.files)
}
