package store

import (
	"fmt"
	"strconv"
	"strings"
)

// shardWidth is the number of characters of the first key segment used as
// the top-level fan-out directory.
const shardWidth = 2

// Key identifies a record. It is also used as a prefix for range operations.
type Key []string

// Path is the on-disk address of a Key, see EncodePath.
type Path []string

// Chunk is one record returned by LoadRange.
type Chunk struct {
	Key  Key
	Data []byte
}

// ParseKey splits a slash separated key such as "4f1a/doc1".
func ParseKey(s string) (Key, error) {
	k := Key(strings.Split(strings.Trim(s, "/"), "/"))
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// Validate reports whether k can be stored.
func (k Key) Validate() error {
	if len(k) == 0 {
		return ErrEmptyKey
	}
	for i, seg := range k {
		if seg == "" {
			return fmt.Errorf("%w: segment %d is empty", ErrInvalidKey, i)
		}
		if strings.ContainsAny(seg, "/\x00") {
			return fmt.Errorf("%w: segment %q contains a reserved character", ErrInvalidKey, seg)
		}
	}
	return nil
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// Equal reports whether k and other have the same segments.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p is a leading subsequence of k.
func (k Key) HasPrefix(p Key) bool {
	return len(p) <= len(k) && k[:len(p)].Equal(p)
}

// CacheKey returns the byte cache index of k. Each segment is written as its
// byte length, a colon and the segment itself, so the encoding is injective
// and CacheKey(p) is a string prefix of CacheKey(k) exactly when k.HasPrefix(p).
func (k Key) CacheKey() string {
	var b strings.Builder
	for _, seg := range k {
		b.WriteString(strconv.Itoa(len(seg)))
		b.WriteByte(':')
		b.WriteString(seg)
	}
	return b.String()
}

func (k Key) clone() Key {
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// EncodePath maps a key to its storage path. The first segment is split
// into a two character shard directory and the remainder:
//
//	["4f1a", "doc1"] -> ["4f", "1a", "doc1"]
//	["z"]            -> ["z", ""]
func EncodePath(k Key) Path {
	first := []rune(k[0])
	n := min(shardWidth, len(first))
	p := make(Path, 0, len(k)+1)
	p = append(p, string(first[:n]), string(first[n:]))
	return append(p, k[1:]...)
}

// DecodePath reverses EncodePath.
func DecodePath(p Path) (Key, error) {
	if len(p) < 2 {
		return nil, fmt.Errorf("%w: %q has fewer than 2 components", ErrInvalidPath, []string(p))
	}
	k := make(Key, 0, len(p)-1)
	k = append(k, p[0]+p[1])
	k = append(k, p[2:]...)
	if err := k.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	return k, nil
}

// pathKey indexes the handle caches. Components never contain '/', so
// prefixing each with a slash is injective even with empty components, and
// the keys of everything below p start with pathKey(p)+"/".
func pathKey(p Path) string {
	var b strings.Builder
	for _, c := range p {
		b.WriteByte('/')
		b.WriteString(c)
	}
	return b.String()
}
