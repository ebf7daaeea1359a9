package sinks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/spf13/afero"
)

// FilesystemSink copies published archives into a folder.
type FilesystemSink struct {
	fs afero.Fs
}

func NewFilesystemSink(fs afero.Fs) engine.Sink {
	return &FilesystemSink{fs: fs}
}

// NewFilesystemSinkFromPath roots a sink at path, creating it if needed.
func NewFilesystemSinkFromPath(path string) (engine.Sink, error) {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(cleanPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cleanPath, err)
	}

	return NewFilesystemSink(afero.NewBasePathFs(afero.NewOsFs(), cleanPath)), nil
}

func (s *FilesystemSink) Name() string {
	return fmt.Sprintf("folder(%s)", s.fs.Name())
}

func (s *FilesystemSink) Kind() string {
	return "folder"
}

// Write stores data at path, creating parent directories.
func (s *FilesystemSink) Write(ctx context.Context, path string, data io.Reader) error {
	if err := afero.WriteReader(s.fs, path, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (s *FilesystemSink) Close(ctx context.Context) error {
	return nil
}
