package sinks

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/infracollect/zipfactory/internal/engine/archivers"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSink records all writes for verification.
type mockSink struct {
	writes map[string][]byte
	closed bool
}

func newMockSink() *mockSink {
	return &mockSink{writes: make(map[string][]byte)}
}

func (m *mockSink) Name() string { return "mock" }
func (m *mockSink) Kind() string { return "mock" }

func (m *mockSink) Write(_ context.Context, path string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.writes[path] = content
	return nil
}

func (m *mockSink) Close(_ context.Context) error {
	m.closed = true
	return nil
}

// readZipToMap returns a map of entry name -> content for zip data.
func readZipToMap(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	found := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		found[f.Name] = string(content)
	}
	return found
}

func newArchiveSinkWithNative(t *testing.T, archiveName string) (*ArchiveSink, *mockSink) {
	t.Helper()
	path := filepath.Join(t.TempDir(), archiveName)
	archiver, err := archivers.NewNative(path, true)
	require.NoError(t, err)
	mock := newMockSink()
	return NewArchiveSink(mock, archiver, path, archiveName), mock
}

func TestArchiveSink_SingleFile(t *testing.T) {
	sink, mockInner := newArchiveSinkWithNative(t, "output.zip")
	ctx := t.Context()

	err := sink.Write(ctx, "test.json", bytes.NewReader([]byte(`{"key":"value"}`)))
	require.NoError(t, err)

	err = sink.Close(ctx)
	require.NoError(t, err)

	assert.Len(t, mockInner.writes, 1)
	require.Contains(t, mockInner.writes, "output.zip")
	found := readZipToMap(t, mockInner.writes["output.zip"])
	assert.Len(t, found, 1)
	assert.Equal(t, `{"key":"value"}`, found["test.json"])
	assert.True(t, mockInner.closed, "inner sink should be closed")
}

func TestArchiveSink_MultipleFiles(t *testing.T) {
	sink, mockInner := newArchiveSinkWithNative(t, "bundle.zip")
	ctx := t.Context()

	files := map[string]string{
		"step1.json":     `{"step":1}`,
		"step2.json":     `{"step":2}`,
		"nested/3.json":  `{"step":3}`,
		"empty-file.txt": "",
	}
	for name, content := range files {
		err := sink.Write(ctx, name, bytes.NewReader([]byte(content)))
		require.NoError(t, err)
	}

	require.NoError(t, sink.Close(ctx))

	found := readZipToMap(t, mockInner.writes["bundle.zip"])
	assert.Equal(t, files, found)
}

func TestArchiveSink_RejectedEntry(t *testing.T) {
	sink, _ := newArchiveSinkWithNative(t, "output.zip")

	err := sink.Write(t.Context(), "dir/", bytes.NewReader([]byte("x")))
	require.Error(t, err)
}

func TestArchiveSink_CloseTwiceFails(t *testing.T) {
	sink, _ := newArchiveSinkWithNative(t, "output.zip")

	require.NoError(t, sink.Close(t.Context()))
	require.Error(t, sink.Close(t.Context()))
}

func TestArchiveSink_WithoutInner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.zip")
	archiver, err := archivers.NewNative(path, true)
	require.NoError(t, err)

	sink := NewArchiveSink(nil, archiver, path, "local.zip")
	require.NoError(t, sink.Write(t.Context(), "a.txt", bytes.NewReader([]byte("a"))))
	require.NoError(t, sink.Close(t.Context()))
	assert.Equal(t, "archive(local.zip)", sink.Name())
	assert.FileExists(t, path)
}

func TestArchiveSink_NameAndKind(t *testing.T) {
	sink, _ := newArchiveSinkWithNative(t, "output.zip")
	assert.Equal(t, "archive(output.zip)->mock", sink.Name())
	assert.Equal(t, "archive", sink.Kind())
}
