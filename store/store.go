package store

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/dendrascience/syncfs/hfs"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultRootName names the root container when none is configured.
const DefaultRootName = "automerge-repo-data"

// Storage is the operation set consumed by the document-sync engine.
type Storage interface {
	Load(ctx context.Context, key Key) ([]byte, bool, error)
	Save(ctx context.Context, key Key, data []byte) error
	Remove(ctx context.Context, key Key) error
	LoadRange(ctx context.Context, prefix Key) ([]Chunk, error)
	RemoveRange(ctx context.Context, prefix Key) error
}

// Lister enumerates the keys present in a store without reading payloads.
type Lister interface {
	Roots(ctx context.Context) ([]string, error)
	List(ctx context.Context, prefix Key) ([]Entry, error)
}

// Entry is an immediate child of a key prefix, see List.
type Entry struct {
	Name   string `json:"name"`
	Prefix bool   `json:"prefix"` // longer keys continue below Name
}

// Stats describes the in-memory state of a Store.
type Stats struct {
	CachedKeys  int `json:"cached_keys"`
	CachedBytes int `json:"cached_bytes"`
	DirHandles  int `json:"dir_handles"`
	FileHandles int `json:"file_handles"`
}

// Store persists records into a hierarchical file store. Payloads are
// memoized in a byte cache and handles in per-path caches, both owned by
// this instance and never evicted.
type Store struct {
	handles         *handleCache
	bytes           *byteCache
	logger          zerolog.Logger
	readConcurrency int
}

// Option configures a Store.
type Option func(*options)

type options struct {
	rootName        string
	logger          zerolog.Logger
	readConcurrency int
}

// WithRootName sets the name of the root container passed to hfs.FS.Root.
func WithRootName(name string) Option {
	return func(o *options) { o.rootName = name }
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithReadConcurrency bounds the parallel file reads of LoadRange.
func WithReadConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readConcurrency = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		rootName:        DefaultRootName,
		logger:          zerolog.Nop(),
		readConcurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open obtains (or creates) the root container of fsys and returns a Store
// on top of it.
func Open(ctx context.Context, fsys hfs.FS, opts ...Option) (*Store, error) {
	o := buildOptions(opts)
	root, err := fsys.Root(ctx, o.rootName)
	if err != nil {
		return nil, fmt.Errorf("failed to open root container %q: %w", o.rootName, err)
	}
	return newStore(root, o), nil
}

// New returns a Store on an already resolved root directory.
func New(root hfs.Directory, opts ...Option) *Store {
	return newStore(root, buildOptions(opts))
}

func newStore(root hfs.Directory, o options) *Store {
	return &Store{
		handles:         newHandleCache(root),
		bytes:           newByteCache(),
		logger:          o.logger.With().Str("component", "store").Logger(),
		readConcurrency: o.readConcurrency,
	}
}

// Load returns the record stored under key. A missing record, and an empty
// one, yield ok == false with a nil error.
func (s *Store) Load(ctx context.Context, key Key) ([]byte, bool, error) {
	if err := key.Validate(); err != nil {
		return nil, false, err
	}
	if data, ok := s.bytes.get(key); ok {
		s.logger.Debug().Str("op", "load").Stringer("key", key).Str("cache", "hit").Send()
		return data, true, nil
	}
	f, err := s.handles.fileHandle(ctx, EncodePath(key))
	if err != nil {
		return nil, false, err
	}
	data, err := f.Read(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	s.logger.Debug().Str("op", "load").Stringer("key", key).Str("cache", "miss").Int("bytes", len(data)).Send()
	if len(data) == 0 {
		return nil, false, nil
	}
	s.bytes.put(key, data)
	return data, true, nil
}

// Save replaces the record under key with data.
func (s *Store) Save(ctx context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	// an empty record reads back as absent
	if len(data) == 0 {
		s.bytes.delete(key)
	} else {
		s.bytes.put(key, data)
	}
	f, err := s.handles.fileHandle(ctx, EncodePath(key))
	if err != nil {
		return err
	}
	if err := f.Replace(ctx, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	s.logger.Debug().Str("op", "save").Stringer("key", key).Int("bytes", len(data)).Send()
	return nil
}

// Remove deletes the record under key. Removing a missing record succeeds.
func (s *Store) Remove(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	// a key naming a prefix directory takes its records with it
	s.bytes.deletePrefix(key)
	p := EncodePath(key)
	parent, err := s.handles.directoryHandle(ctx, p[:len(p)-1])
	if err != nil {
		return err
	}
	if err := parent.Remove(ctx, p[len(p)-1], true); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	s.handles.invalidate(p)
	s.logger.Debug().Str("op", "remove").Stringer("key", key).Send()
	return nil
}

// LoadRange returns every record whose key starts with prefix, in no
// particular order. Cached records take priority over what is on disk.
func (s *Store) LoadRange(ctx context.Context, prefix Key) ([]Chunk, error) {
	if err := prefix.Validate(); err != nil {
		return nil, err
	}
	covered := s.bytes.withPrefix(prefix)
	chunks := make([]Chunk, 0, len(covered))
	for _, c := range covered {
		chunks = append(chunks, c)
	}
	cached := len(chunks)

	base := EncodePath(prefix)
	dir, err := s.handles.directoryHandle(ctx, base)
	if err != nil {
		return nil, err
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.readConcurrency)
	err = s.walk(ctx, dir, base, func(p Path, f hfs.File) error {
		key, err := DecodePath(p)
		if err != nil {
			return err
		}
		if _, ok := covered[key.CacheKey()]; ok {
			return nil
		}
		g.Go(func() error {
			data, err := f.Read(ctx)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", key, err)
			}
			if len(data) == 0 {
				return nil
			}
			s.bytes.put(key, data)
			mu.Lock()
			chunks = append(chunks, Chunk{Key: key, Data: data})
			mu.Unlock()
			return nil
		})
		return nil
	})
	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("op", "load_range").Stringer("prefix", prefix).
		Int("cached", cached).Int("chunks", len(chunks)).Send()
	return chunks, nil
}

// walk calls fn for every file below dir. p is the path of dir.
func (s *Store) walk(ctx context.Context, dir hfs.Directory, p Path, fn func(Path, hfs.File) error) error {
	entries, err := dir.Entries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", pathKey(p), err)
	}
	for _, e := range entries {
		child := append(p[:len(p):len(p)], e.Name)
		switch e.Kind {
		case hfs.KindDirectory:
			sub, err := dir.Directory(ctx, e.Name)
			if err != nil {
				return err
			}
			if err := s.walk(ctx, sub, child, fn); err != nil {
				return err
			}
		case hfs.KindFile:
			f, err := dir.File(ctx, e.Name)
			if err != nil {
				return err
			}
			if err := fn(child, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveRange deletes every record whose key starts with prefix by removing
// the prefix directory in one recursive operation.
func (s *Store) RemoveRange(ctx context.Context, prefix Key) error {
	if err := prefix.Validate(); err != nil {
		return err
	}
	n := s.bytes.deletePrefix(prefix)
	p := EncodePath(prefix)
	parent, err := s.handles.directoryHandle(ctx, p[:len(p)-1])
	if err != nil {
		return err
	}
	if err := parent.Remove(ctx, p[len(p)-1], true); err != nil {
		return fmt.Errorf("failed to remove range %s: %w", prefix, err)
	}
	s.handles.invalidate(p)
	s.logger.Debug().Str("op", "remove_range").Stringer("prefix", prefix).Int("evicted", n).Send()
	return nil
}

// Roots returns the distinct first key segments, from disk and from the
// byte cache, sorted.
func (s *Store) Roots(ctx context.Context) ([]string, error) {
	entries, err := s.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out, nil
}

// List returns the immediate children of prefix sorted by name, from disk
// and from the byte cache. The empty prefix lists first key segments.
// Zero-length records are skipped and nothing is created on disk; a prefix
// with no directory yields an empty listing.
func (s *Store) List(ctx context.Context, prefix Key) ([]Entry, error) {
	if len(prefix) > 0 {
		if err := prefix.Validate(); err != nil {
			return nil, err
		}
	}
	children := s.bytes.children(prefix)
	add := func(name string, e hfs.Entry) {
		// empty records read back as absent
		if name == "" || (e.Kind == hfs.KindFile && e.Size == 0) {
			return
		}
		children[name] = children[name] || e.Kind == hfs.KindDirectory
	}

	if len(prefix) == 0 {
		shards, err := s.handles.root.Entries(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list root: %w", err)
		}
		for _, shard := range shards {
			if shard.Kind != hfs.KindDirectory {
				continue
			}
			dir, ok, err := s.handles.lookupDirectory(ctx, Path{shard.Name})
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			rest, err := dir.Entries(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list shard %q: %w", shard.Name, err)
			}
			for _, r := range rest {
				add(shard.Name+r.Name, r)
			}
		}
	} else {
		dir, ok, err := s.handles.lookupDirectory(ctx, EncodePath(prefix))
		if err != nil {
			return nil, err
		}
		if ok {
			entries, err := dir.Entries(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
			}
			for _, e := range entries {
				add(e.Name, e)
			}
		}
	}

	out := make([]Entry, 0, len(children))
	for name, isPrefix := range children {
		out = append(out, Entry{Name: name, Prefix: isPrefix})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	s.logger.Debug().Str("op", "list").Stringer("prefix", prefix).Int("entries", len(out)).Send()
	return out, nil
}

// Stats reports the size of the in-memory caches.
func (s *Store) Stats() Stats {
	var st Stats
	st.CachedKeys, st.CachedBytes = s.bytes.stats()
	st.DirHandles, st.FileHandles = s.handles.stats()
	return st
}
