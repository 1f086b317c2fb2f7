package hfs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process FS. All handles share one lock.
type Memory struct {
	mu    sync.RWMutex
	roots map[string]*memNode
}

// NewMemory returns an empty in-memory filesystem.
func NewMemory() *Memory {
	return &Memory{roots: make(map[string]*memNode)}
}

type memNode struct {
	kind     Kind
	data     []byte
	children map[string]*memNode
}

type memDir struct {
	fs   *Memory
	node *memNode
}

type memFile struct {
	fs   *Memory
	node *memNode
}

func checkName(name string) error {
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (m *Memory) Root(_ context.Context, name string) (Directory, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.roots[name]
	if !ok {
		n = &memNode{kind: KindDirectory, children: make(map[string]*memNode)}
		m.roots[name] = n
	}
	return &memDir{fs: m, node: n}, nil
}

func (d *memDir) Directory(_ context.Context, name string) (Directory, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	n, ok := d.node.children[name]
	switch {
	case !ok:
		n = &memNode{kind: KindDirectory, children: make(map[string]*memNode)}
		d.node.children[name] = n
	case n.kind != KindDirectory:
		return nil, fmt.Errorf("%q: %w", name, ErrExpectedDirectory)
	}
	return &memDir{fs: d.fs, node: n}, nil
}

func (d *memDir) File(_ context.Context, name string) (File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	n, ok := d.node.children[name]
	switch {
	case !ok:
		n = &memNode{kind: KindFile}
		d.node.children[name] = n
	case n.kind != KindFile:
		return nil, fmt.Errorf("%q: %w", name, ErrExpectedFile)
	}
	return &memFile{fs: d.fs, node: n}, nil
}

func (d *memDir) Remove(_ context.Context, name string, recursive bool) error {
	if err := checkName(name); err != nil {
		return err
	}
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()
	n, ok := d.node.children[name]
	if !ok {
		return nil
	}
	if n.kind == KindDirectory && len(n.children) > 0 && !recursive {
		return fmt.Errorf("%q: %w", name, ErrDirectoryNotEmpty)
	}
	delete(d.node.children, name)
	return nil
}

func (d *memDir) Entries(_ context.Context) ([]Entry, error) {
	d.fs.mu.RLock()
	defer d.fs.mu.RUnlock()
	entries := make([]Entry, 0, len(d.node.children))
	for name, n := range d.node.children {
		entries = append(entries, Entry{Name: name, Kind: n.kind, Size: int64(len(n.data))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (f *memFile) Read(_ context.Context) ([]byte, error) {
	f.fs.mu.RLock()
	defer f.fs.mu.RUnlock()
	out := make([]byte, len(f.node.data))
	copy(out, f.node.data)
	return out, nil
}

func (f *memFile) Replace(_ context.Context, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.node.data = stored
	return nil
}
