package sinks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/infracollect/zipfactory/internal/engine"
)

// ArchiveSink collects writes into an Archiver as in-memory entries. On
// Close, it closes the archiver and publishes the finished archive file to
// the inner sink.
type ArchiveSink struct {
	inner       engine.Sink
	archiver    engine.Archiver
	archivePath string
	archiveName string
}

// NewArchiveSink wraps archiver, whose file lives at archivePath. The archive
// is published to inner as archiveName. A nil inner sink only closes the
// archiver.
func NewArchiveSink(inner engine.Sink, archiver engine.Archiver, archivePath, archiveName string) *ArchiveSink {
	return &ArchiveSink{
		inner:       inner,
		archiver:    archiver,
		archivePath: archivePath,
		archiveName: archiveName,
	}
}

func (s *ArchiveSink) Name() string {
	if s.inner == nil {
		return fmt.Sprintf("archive(%s)", s.archiveName)
	}
	return fmt.Sprintf("archive(%s)->%s", s.archiveName, s.inner.Name())
}

func (s *ArchiveSink) Kind() string {
	return "archive"
}

// Write adds data to the archive as the entry path.
func (s *ArchiveSink) Write(ctx context.Context, path string, data io.Reader) error {
	content, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read entry data: %w", err)
	}

	if !s.archiver.AddFromContent(path, content) {
		return fmt.Errorf("failed to add %s to archive", path)
	}
	return nil
}

// Close finalizes the archive and writes it to the inner sink.
func (s *ArchiveSink) Close(ctx context.Context) (err error) {
	if !s.archiver.Close() {
		return fmt.Errorf("failed to finalize archive %s", s.archivePath)
	}
	if s.inner == nil {
		return nil
	}

	f, err := os.Open(s.archivePath)
	if err != nil {
		return fmt.Errorf("failed to open finished archive: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	if err := s.inner.Write(ctx, s.archiveName, f); err != nil {
		return fmt.Errorf("failed to write archive to sink: %w", err)
	}

	if err := s.inner.Close(ctx); err != nil {
		return fmt.Errorf("failed to close inner sink: %w", err)
	}

	return nil
}
