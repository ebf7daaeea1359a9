package archivers

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

type adapterCase struct {
	name   string
	create func(t *testing.T, path string) engine.Archiver
	open   func(t *testing.T, path string) engine.Archiver
}

func adapterCases() []adapterCase {
	return []adapterCase{
		{
			name: "native",
			create: func(t *testing.T, path string) engine.Archiver {
				a, err := NewNative(path, true)
				require.NoError(t, err)
				return a
			},
			open: func(t *testing.T, path string) engine.Archiver {
				a, err := NewNative(path, false)
				require.NoError(t, err)
				return a
			},
		},
		{
			name: "fallback",
			create: func(t *testing.T, path string) engine.Archiver {
				a, err := NewFallback(path)
				require.NoError(t, err)
				return a
			},
			open: func(t *testing.T, path string) engine.Archiver {
				a, err := NewFallback(path)
				require.NoError(t, err)
				return a
			},
		},
	}
}

// writeTree creates files below root. Keys ending in "/" are created as
// empty directories.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// readZipEntries returns a map of entry name -> content for the archive at path.
func readZipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	found := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		found[f.Name] = string(content)
	}
	return found
}

func allByteValues() []byte {
	b := make([]byte, 256)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}
