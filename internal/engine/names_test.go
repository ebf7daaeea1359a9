package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryName(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		localName string
		expected  string
	}{
		{
			name:      "local name wins",
			path:      "/tmp/data/a.txt",
			localName: "docs/a.txt",
			expected:  "docs/a.txt",
		},
		{
			name:     "absolute path loses leading slash",
			path:     "/tmp/data/a.txt",
			expected: "tmp/data/a.txt",
		},
		{
			name:     "relative path is cleaned",
			path:     "./data/../a.txt",
			expected: "a.txt",
		},
		{
			name:      "leading slash stripped from local name",
			path:      "a.txt",
			localName: "/root.txt",
			expected:  "root.txt",
		},
		{
			name:     "empty path",
			path:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EntryName(filepath.FromSlash(tt.path), tt.localName))
		})
	}
}

func TestJoinEntry(t *testing.T) {
	assert.Equal(t, "sub/file.txt", JoinEntry("", filepath.Join("sub", "file.txt")))
	assert.Equal(t, "prefix/sub", JoinEntry("prefix", "sub"))
	assert.Equal(t, "prefix/sub", JoinEntry("/prefix/", "sub"))
}

func TestDirEntryName(t *testing.T) {
	assert.Equal(t, "dir/", DirEntryName("dir"))
	assert.Equal(t, "dir/", DirEntryName("dir/"))
}

func TestValidFileName(t *testing.T) {
	assert.True(t, ValidFileName("a.txt"))
	assert.False(t, ValidFileName(""))
	assert.False(t, ValidFileName("dir/"))
}

func TestEntrySet(t *testing.T) {
	t.Run("nil set matches everything", func(t *testing.T) {
		set := NewEntrySet(nil)
		assert.True(t, set.Match("anything"))
		assert.Empty(t, set.Missing())
	})

	t.Run("named entries", func(t *testing.T) {
		set := NewEntrySet([]string{"a.txt", "dir/"})
		assert.True(t, set.Match("a.txt"))
		assert.False(t, set.Match("b.txt"))
		assert.Equal(t, []string{"dir"}, set.Missing())

		assert.True(t, set.Match("dir/"))
		assert.Empty(t, set.Missing())
	})
}

func TestSafeJoin(t *testing.T) {
	dest := t.TempDir()

	target, err := SafeJoin(dest, "sub/file.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "sub", "file.txt"), target)

	_, err = SafeJoin(dest, "../escape.txt")
	require.Error(t, err)

	_, err = SafeJoin(dest, "sub/../../escape.txt")
	require.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       Compression
		wantMethod uint16
		wantErr    bool
	}{
		{name: "empty defaults to deflate", input: "", want: CompressionDeflate, wantMethod: 8},
		{name: "deflate", input: "deflate", want: CompressionDeflate, wantMethod: 8},
		{name: "store", input: "store", want: CompressionStore, wantMethod: 0},
		{name: "zstd", input: "zstd", want: CompressionZstd, wantMethod: 93},
		{name: "unsupported", input: "bzip2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCompression(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.wantMethod, c.Method())
		})
	}
}

func TestOpenError(t *testing.T) {
	err := NewOpenError("/tmp/a.zip", StatusOK, fmt.Errorf("open: %w", fs.ErrNotExist))
	assert.Equal(t, StatusNoEnt, err.Status)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "return code 9")

	var openErr *OpenError
	wrapped := fmt.Errorf("outer: %w", NewOpenError("/tmp/a.zip", StatusNoZip, nil))
	require.True(t, errors.As(wrapped, &openErr))
	assert.Equal(t, StatusNoZip, openErr.Status)
	assert.Equal(t, "archive file /tmp/a.zip could not be opened: not a zip archive (return code 19)", openErr.Error())
}
