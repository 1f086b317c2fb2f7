package store

import (
	"strings"
	"sync"
)

type cacheEntry struct {
	key  Key
	data []byte
}

// byteCache memoizes record payloads by CacheKey. Values are copied on the
// way in and out so a caller can never change what the cache holds.
type byteCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newByteCache() *byteCache {
	return &byteCache{entries: make(map[string]cacheEntry)}
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *byteCache) get(k Key) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[k.CacheKey()]
	if !ok {
		return nil, false
	}
	return cloneBytes(e.data), true
}

func (c *byteCache) put(k Key, data []byte) {
	e := cacheEntry{key: k.clone(), data: cloneBytes(data)}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k.CacheKey()] = e
}

func (c *byteCache) delete(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, k.CacheKey())
}

func (c *byteCache) deletePrefix(p Key) int {
	prefix := p.CacheKey()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for ck := range c.entries {
		if strings.HasPrefix(ck, prefix) {
			delete(c.entries, ck)
			n++
		}
	}
	return n
}

// withPrefix returns copies of every entry under p, keyed by CacheKey.
func (c *byteCache) withPrefix(p Key) map[string]Chunk {
	prefix := p.CacheKey()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Chunk)
	for ck, e := range c.entries {
		if strings.HasPrefix(ck, prefix) {
			out[ck] = Chunk{Key: e.key.clone(), Data: cloneBytes(e.data)}
		}
	}
	return out
}

// children maps the segment following p in every cached key under p to
// whether more segments follow it.
func (c *byteCache) children(p Key) map[string]bool {
	prefix := p.CacheKey()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]bool)
	for ck, e := range c.entries {
		if len(e.key) <= len(p) || !strings.HasPrefix(ck, prefix) {
			continue
		}
		name := e.key[len(p)]
		out[name] = out[name] || len(e.key) > len(p)+1
	}
	return out
}

func (c *byteCache) stats() (keys, bytes int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		bytes += len(e.data)
	}
	return len(c.entries), bytes
}
