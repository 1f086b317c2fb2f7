package fusefs

import (
	"context"
	"errors"
	"os"
	"slices"
	"sync"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/syncfs/hfs"
	"github.com/dendrascience/syncfs/store"
	"github.com/rs/zerolog"
	"github.com/taigrr/colorhash"
)

// Backend is the store surface the filesystem is served from. Both
// *store.Store and *proxy.Proxy implement it.
type Backend interface {
	store.Storage
	store.Lister
}

// FS implements the syncfs FUSE filesystem
type FS struct {
	backend Backend
	logger  zerolog.Logger

	mu      sync.Mutex
	pending map[string]pendingNode // made by mkdir or create, not yet visible in the store
}

// pendingNode is a directory without records or a file whose record is still
// empty. Neither shows up in a store listing.
type pendingNode struct {
	key  store.Key
	file bool
}

// NewFS creates a new syncfs filesystem instance
func NewFS(backend Backend, logger zerolog.Logger) *FS {
	return &FS{
		backend: backend,
		logger:  logger,
		pending: make(map[string]pendingNode),
	}
}

// Root returns the root directory node
func (f *FS) Root() (fs.Node, error) {
	return &Dir{fs: f}, nil
}

// inode derives a stable inode number from a key so repeated lookups of the
// same record agree without an inode table.
func inode(k store.Key, dir bool) uint64 {
	if len(k) == 0 {
		return 1
	}
	kind := "f:"
	if dir {
		kind = "d:"
	}
	return uint64(colorhash.HashString(kind + k.CacheKey()))
}

func child(k store.Key, name string) store.Key {
	return append(k[:len(k):len(k)], name)
}

// errno maps store failures to the error numbers FUSE callers expect.
func (f *FS) errno(op string, k store.Key, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrEmptyKey), errors.Is(err, store.ErrInvalidKey), errors.Is(err, hfs.ErrInvalidName):
		return syscall.EINVAL
	case errors.Is(err, hfs.ErrExpectedDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, hfs.ErrExpectedFile):
		return syscall.EISDIR
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return syscall.EINTR
	}
	f.logger.Error().Err(err).Str("op", op).Stringer("key", k).Msg("fuse operation failed")
	return syscall.EIO
}

func (f *FS) addPending(k store.Key, file bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[k.CacheKey()] = pendingNode{key: slices.Clone(k), file: file}
}

func (f *FS) dropPending(k store.Key) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, k.CacheKey())
}

// pendingChildren maps the names of pending nodes directly below k to
// whether they are files.
func (f *FS) pendingChildren(k store.Key) map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make(map[string]bool)
	for _, p := range f.pending {
		if len(p.key) == len(k)+1 && p.key.HasPrefix(k) {
			names[p.key[len(k)]] = p.file
		}
	}
	return names
}

// Dir is a key prefix. The root Dir has an empty key and lists first key
// segments.
type Dir struct {
	fs  *FS
	key store.Key
}

// Attr returns directory attributes
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	now := time.Now()
	a.Inode = inode(d.key, true)
	a.Mode = os.ModeDir | 0o755
	a.Mtime = now
	a.Ctime = now
	a.Atime = now
	return nil
}

// Lookup resolves a name to a record or a deeper prefix
func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	k := child(d.key, name)
	if k.Validate() != nil {
		return nil, syscall.ENOENT
	}
	entries, err := d.fs.backend.List(ctx, d.key)
	if err != nil {
		return nil, d.fs.errno("lookup", d.key, err)
	}
	for _, e := range entries {
		if e.Name != name {
			continue
		}
		if e.Prefix {
			return &Dir{fs: d.fs, key: k}, nil
		}
		return &File{fs: d.fs, key: k}, nil
	}
	if file, ok := d.fs.pendingChildren(d.key)[name]; ok {
		if file {
			return &File{fs: d.fs, key: k}, nil
		}
		return &Dir{fs: d.fs, key: k}, nil
	}
	return nil, syscall.ENOENT
}

// ReadDirAll lists directory contents
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := d.fs.backend.List(ctx, d.key)
	if err != nil {
		return nil, d.fs.errno("readdir", d.key, err)
	}
	dirents := make([]fuse.Dirent, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Name] = true
		typ := fuse.DT_File
		if e.Prefix {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: inode(child(d.key, e.Name), e.Prefix),
			Name:  e.Name,
			Type:  typ,
		})
	}
	for name, file := range d.fs.pendingChildren(d.key) {
		if seen[name] {
			continue
		}
		typ := fuse.DT_Dir
		if file {
			typ = fuse.DT_File
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: inode(child(d.key, name), !file),
			Name:  name,
			Type:  typ,
		})
	}
	slices.SortFunc(dirents, func(a, b fuse.Dirent) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return dirents, nil
}

// Create makes an empty record. The store reads it back as absent, so the
// file stays pending until it is flushed with data.
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	k := child(d.key, req.Name)
	if err := d.fs.backend.Save(ctx, k, nil); err != nil {
		return nil, nil, d.fs.errno("create", k, err)
	}
	for p := d.key; len(p) > 0; p = p[:len(p)-1] {
		d.fs.dropPending(p)
	}
	d.fs.addPending(k, true)

	file := &File{
		fs:       d.fs,
		key:      k,
		data:     []byte{},
		loaded:   true,
		modified: time.Now(),
	}
	file.fillAttr(&resp.Attr)
	return file, file, nil
}

// Mkdir records a prefix directory. It only reaches the store once a record
// is created below it.
func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	k := child(d.key, req.Name)
	if err := k.Validate(); err != nil {
		return nil, d.fs.errno("mkdir", k, err)
	}
	d.fs.addPending(k, false)
	return &Dir{fs: d.fs, key: k}, nil
}

// Remove deletes a record, or an empty prefix directory
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	k := child(d.key, req.Name)
	if !req.Dir {
		if err := d.fs.backend.Remove(ctx, k); err != nil {
			return d.fs.errno("remove", k, err)
		}
		d.fs.dropPending(k)
		return nil
	}
	entries, err := d.fs.backend.List(ctx, k)
	if err != nil {
		return d.fs.errno("rmdir", k, err)
	}
	if len(entries) > 0 || len(d.fs.pendingChildren(k)) > 0 {
		return syscall.ENOTEMPTY
	}
	d.fs.dropPending(k)
	return d.fs.errno("rmdir", k, d.fs.backend.RemoveRange(ctx, k))
}

// File is one record. Its payload is loaded on first use and written back
// whole on flush.
type File struct {
	fs  *FS
	key store.Key

	mu       sync.RWMutex
	data     []byte
	loaded   bool
	dirty    bool
	modified time.Time
}

// load fetches the record. The caller holds f.mu for writing.
func (f *File) load(ctx context.Context) error {
	if f.loaded {
		return nil
	}
	data, _, err := f.fs.backend.Load(ctx, f.key)
	if err != nil {
		return f.fs.errno("load", f.key, err)
	}
	f.data = data
	f.loaded = true
	if f.modified.IsZero() {
		f.modified = time.Now()
	}
	return nil
}

// fillAttr does not lock; callers hold f.mu.
func (f *File) fillAttr(a *fuse.Attr) {
	a.Inode = inode(f.key, false)
	a.Mode = 0o644
	a.Size = uint64(len(f.data))
	a.Mtime = f.modified
	a.Ctime = f.modified
	a.Atime = time.Now()
}

// Attr returns file attributes
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(ctx); err != nil {
		return err
	}
	f.fillAttr(a)
	return nil
}

// ReadAll reads the entire record
func (f *File) ReadAll(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(f.data), nil
}

// Write writes data to the file buffer
func (f *File) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.load(ctx); err != nil {
		return err
	}

	// Extend data slice if necessary
	newLen := int(req.Offset) + len(req.Data)
	if newLen > len(f.data) {
		newData := make([]byte, newLen)
		copy(newData, f.data)
		f.data = newData
	}

	copy(f.data[req.Offset:], req.Data)
	resp.Size = len(req.Data)

	f.modified = time.Now()
	f.dirty = true
	return nil
}

// Flush saves a modified buffer as the new record
func (f *File) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.dirty {
		return nil
	}
	if err := f.fs.backend.Save(ctx, f.key, f.data); err != nil {
		return f.fs.errno("flush", f.key, err)
	}
	if len(f.data) == 0 {
		f.fs.addPending(f.key, true)
	} else {
		f.fs.dropPending(f.key)
	}
	f.dirty = false
	return nil
}

// Fsync forces synchronization
func (f *File) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return f.Flush(ctx, &fuse.FlushRequest{})
}

// Setattr handles truncation and mtime updates
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.Valid.Size() {
		if err := f.load(ctx); err != nil {
			return err
		}
		if req.Size < uint64(len(f.data)) {
			f.data = f.data[:req.Size]
		} else if req.Size > uint64(len(f.data)) {
			newData := make([]byte, req.Size)
			copy(newData, f.data)
			f.data = newData
		}
		f.modified = time.Now()
		f.dirty = true
	}

	if req.Valid.Mtime() {
		f.modified = req.Mtime
	}

	// fillAttr, not Attr: f.mu is already held
	f.fillAttr(&resp.Attr)
	return nil
}

var (
	_ fs.FS                 = (*FS)(nil)
	_ fs.NodeStringLookuper = (*Dir)(nil)
	_ fs.HandleReadDirAller = (*Dir)(nil)
	_ fs.NodeCreater        = (*Dir)(nil)
	_ fs.NodeMkdirer        = (*Dir)(nil)
	_ fs.NodeRemover        = (*Dir)(nil)
	_ fs.HandleReadAller    = (*File)(nil)
	_ fs.HandleWriter       = (*File)(nil)
	_ fs.HandleFlusher      = (*File)(nil)
	_ fs.NodeFsyncer        = (*File)(nil)
	_ fs.NodeSetattrer      = (*File)(nil)
)
