package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePath(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want Path
	}{
		{
			name: "document chunk",
			key:  Key{"4f1a", "doc1"},
			want: Path{"4f", "1a", "doc1"},
		},
		{
			name: "single segment",
			key:  Key{"4f1a"},
			want: Path{"4f", "1a"},
		},
		{
			name: "exactly two characters",
			key:  Key{"zz", "missing"},
			want: Path{"zz", "", "missing"},
		},
		{
			name: "shorter than the shard width",
			key:  Key{"z"},
			want: Path{"z", ""},
		},
		{
			name: "multibyte first segment is split on runes",
			key:  Key{"ñöx", "a", "b"},
			want: Path{"ñö", "x", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodePath(tt.key)
			assert.Equal(t, tt.want, got)

			back, err := DecodePath(got)
			require.NoError(t, err)
			assert.Equal(t, tt.key, back)
		})
	}
}

func TestDecodePath_Invalid(t *testing.T) {
	tests := []struct {
		name string
		path Path
	}{
		{name: "empty", path: Path{}},
		{name: "one component", path: Path{"4f"}},
		{name: "empty first segment", path: Path{"", ""}},
		{name: "empty trailing segment", path: Path{"4f", "1a", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePath(tt.path)
			assert.ErrorIs(t, err, ErrInvalidPath)
		})
	}
}

func TestKey_Validate(t *testing.T) {
	assert.ErrorIs(t, Key{}.Validate(), ErrEmptyKey)
	assert.ErrorIs(t, Key(nil).Validate(), ErrEmptyKey)
	assert.ErrorIs(t, Key{"a", ""}.Validate(), ErrInvalidKey)
	assert.ErrorIs(t, Key{"a/b"}.Validate(), ErrInvalidKey)
	assert.ErrorIs(t, Key{"a\x00"}.Validate(), ErrInvalidKey)
	assert.NoError(t, Key{".", "..", "~"}.Validate())
}

func TestKey_CacheKeyInjective(t *testing.T) {
	keys := []Key{
		{"a", "b"},
		{"ab"},
		{"a:b"},
		{"1:a"},
		{"a", "b", "c"},
		{"a", "bc"},
		{"ab", "c"},
		{"12345678901", "x"},
		{"1", "2345678901x"},
	}
	seen := make(map[string]Key)
	for _, k := range keys {
		ck := k.CacheKey()
		if prev, ok := seen[ck]; ok {
			t.Fatalf("CacheKey collision between %q and %q: %q", prev, k, ck)
		}
		seen[ck] = k
	}
}

func TestKey_CacheKeyPrefixFaithful(t *testing.T) {
	tests := []struct {
		name   string
		key    Key
		prefix Key
		want   bool
	}{
		{name: "itself", key: Key{"4f1a", "doc1"}, prefix: Key{"4f1a", "doc1"}, want: true},
		{name: "leading segment", key: Key{"4f1a", "doc1"}, prefix: Key{"4f1a"}, want: true},
		{name: "partial segment", key: Key{"4f1ab", "doc1"}, prefix: Key{"4f1a"}, want: false},
		{name: "longer prefix", key: Key{"4f1a"}, prefix: Key{"4f1a", "doc1"}, want: false},
		{name: "different second segment", key: Key{"4f1a", "doc10"}, prefix: Key{"4f1a", "doc1"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.HasPrefix(tt.prefix))
			got := strings.HasPrefix(tt.key.CacheKey(), tt.prefix.CacheKey())
			assert.Equal(t, tt.want, got, "cache key prefix must agree with HasPrefix")
		})
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("/4f1a/doc1/")
	require.NoError(t, err)
	assert.Equal(t, Key{"4f1a", "doc1"}, k)
	assert.Equal(t, "4f1a/doc1", k.String())

	_, err = ParseKey("4f1a//doc1")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = ParseKey("")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestPathKey(t *testing.T) {
	assert.Equal(t, "", pathKey(Path{}))
	assert.NotEqual(t, pathKey(Path{"a"}), pathKey(Path{"a", ""}))
	assert.NotEqual(t, pathKey(Path{"a", "", "b"}), pathKey(Path{"a", "b"}))
	assert.True(t, strings.HasPrefix(pathKey(Path{"a", "", "b"}), pathKey(Path{"a", ""})+"/"))
	assert.False(t, strings.HasPrefix(pathKey(Path{"ab"}), pathKey(Path{"a"})+"/"))
}
