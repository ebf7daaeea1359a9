package archivers

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/klauspost/compress/zstd"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNative_OpenErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.zip")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a zip archive"), 0o644))

	tests := []struct {
		name       string
		path       string
		write      bool
		wantStatus engine.Status
	}{
		{
			name:       "missing archive",
			path:       filepath.Join(dir, "missing.zip"),
			wantStatus: engine.StatusNoEnt,
		},
		{
			name:       "not a zip archive",
			path:       garbage,
			wantStatus: engine.StatusNoZip,
		},
		{
			name:       "directory",
			path:       dir,
			wantStatus: engine.StatusOpen,
		},
		{
			name:       "create in missing directory",
			path:       filepath.Join(dir, "no", "such", "dir", "a.zip"),
			write:      true,
			wantStatus: engine.StatusOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewNative(tt.path, tt.write)
			require.Error(t, err)
			assert.Nil(t, a)

			var openErr *engine.OpenError
			require.True(t, errors.As(err, &openErr))
			assert.Equal(t, tt.wantStatus, openErr.Status)
			assert.Equal(t, tt.path, openErr.Path)
		})
	}
}

func TestNewNative_CreateOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, []byte("old content"), 0o644))

	a, err := NewNative(path, true)
	require.NoError(t, err)

	// The file is a valid, empty archive before anything is committed.
	entries, err := List(afero.NewOsFs(), path)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.True(t, a.AddFromContent("new.txt", []byte("new")))
	require.True(t, a.Close())

	assert.Equal(t, map[string]string{"new.txt": "new"}, readZipEntries(t, path))
}

func TestNative_AddFileRange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.txt")
	require.NoError(t, os.WriteFile(src, []byte("abcdefgh"), 0o644))
	path := filepath.Join(dir, "archive.zip")

	a, err := NewNative(path, true)
	require.NoError(t, err)

	assert.True(t, a.AddFile(src, "middle.txt", 2, 3))
	assert.True(t, a.AddFile(src, "tail.txt", 5, 0))
	assert.True(t, a.AddFile(src, "overlong.txt", 6, 100))
	assert.False(t, a.AddFile(src, "past-end.txt", 9, 0))
	assert.False(t, a.AddFile(src, "negative.txt", -1, 0))
	require.True(t, a.Close())

	entries := readZipEntries(t, path)
	assert.Equal(t, "cde", entries["middle.txt"])
	assert.Equal(t, "fgh", entries["tail.txt"])
	assert.Equal(t, "gh", entries["overlong.txt"])
	assert.NotContains(t, entries, "past-end.txt")
}

func TestNative_CloseTwice(t *testing.T) {
	a, err := NewNative(filepath.Join(t.TempDir(), "archive.zip"), true)
	require.NoError(t, err)

	require.True(t, a.Close())
	assert.False(t, a.Close(), "second Close() should report failure")
	assert.False(t, a.AddFromContent("late.txt", []byte("late")))
	assert.False(t, a.ExtractTo(t.TempDir()))
}

func TestNative_ReplacesEntryWithSameName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.zip")

	a, err := NewNative(path, true)
	require.NoError(t, err)
	require.True(t, a.AddFromContent("config.yaml", []byte("v1")))
	require.True(t, a.AddFromContent("keep.txt", []byte("keep")))
	require.True(t, a.Close())

	b, err := NewNative(path, false)
	require.NoError(t, err)
	require.True(t, b.AddFromContent("config.yaml", []byte("v2")))
	require.True(t, b.AddFromContent("config.yaml", []byte("v3")))
	require.True(t, b.Close())

	assert.Equal(t, map[string]string{
		"config.yaml": "v3",
		"keep.txt":    "keep",
	}, readZipEntries(t, path))
}

func TestNative_StagedEntriesVisibleAfterClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")

	a, err := NewNative(path, true)
	require.NoError(t, err)
	require.True(t, a.AddFromContent("a.txt", []byte("a")))

	assert.False(t, a.ExtractTo(filepath.Join(dir, "early"), "a.txt"))
	require.True(t, a.Close())

	b, err := NewNative(path, false)
	require.NoError(t, err)
	assert.True(t, b.ExtractTo(filepath.Join(dir, "late"), "a.txt"))
	require.True(t, b.Close())
}

func TestNative_ZstdCompression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")
	content := []byte("zstd compressed content, zstd compressed content")

	a, err := NewNative(path, true, WithCompression(engine.CompressionZstd))
	require.NoError(t, err)
	require.True(t, a.AddFromContent("data.txt", content))
	require.True(t, a.Close())

	entries, err := List(afero.NewOsFs(), path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint16(zstd.ZipMethodWinZip), entries[0].Method)

	b, err := NewNative(path, false)
	require.NoError(t, err)
	require.True(t, b.ExtractTo(filepath.Join(dir, "out")))
	require.True(t, b.Close())

	got, err := os.ReadFile(filepath.Join(dir, "out", "data.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestNative_AddDirPreOrderLexical(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/src/b", 0o755))
	for name, content := range map[string]string{
		"/src/b/c.txt": "c",
		"/src/a.txt":   "a",
		"/src/b/a.txt": "ba",
	} {
		require.NoError(t, afero.WriteFile(mem, name, []byte(content), 0o644))
	}
	require.NoError(t, mem.MkdirAll("/src/d", 0o755))

	a, err := NewNative("/out.zip", true, WithFs(mem))
	require.NoError(t, err)
	a.AddDir("/src", "root")
	require.True(t, a.Close())

	entries, err := List(mem, "/out.zip")
	require.NoError(t, err)
	names := lo.Map(entries, func(e EntryInfo, _ int) string { return e.Name })
	assert.Equal(t, []string{
		"root/a.txt",
		"root/b/",
		"root/b/a.txt",
		"root/b/c.txt",
		"root/d/",
	}, names)

	require.True(t, lo.EveryBy(entries, func(e EntryInfo) bool {
		return e.Dir == (e.Name[len(e.Name)-1] == '/')
	}))

	b, err := NewNative("/out.zip", false, WithFs(mem))
	require.NoError(t, err)
	require.True(t, b.ExtractTo("/dest"))
	require.True(t, b.Close())

	got, err := afero.ReadFile(mem, "/dest/root/b/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "ba", string(got))

	info, err := mem.Stat("/dest/root/d")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNative_AddDirMissingRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.zip")
	a, err := NewNative(path, true)
	require.NoError(t, err)

	a.AddDir(filepath.Join(t.TempDir(), "missing"), "x")
	require.True(t, a.Close())

	assert.Empty(t, readZipEntries(t, path))
}

func TestNative_ExtractRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.zip")

	a, err := NewNative(path, true)
	require.NoError(t, err)
	require.True(t, a.AddFromContent("../escape.txt", []byte("x")))
	require.True(t, a.Close())

	b, err := NewNative(path, false)
	require.NoError(t, err)
	assert.False(t, b.ExtractTo(filepath.Join(dir, "out")))
	require.True(t, b.Close())

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
