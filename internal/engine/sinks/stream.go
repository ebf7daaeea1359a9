package sinks

import (
	"context"
	"fmt"
	"io"

	"github.com/infracollect/zipfactory/internal/engine"
)

// StreamSink publishes a finished archive as raw bytes to a writer, which is
// how `create --stdout` pipes the archive to another process. Only one
// archive can go to a stream: a second one would corrupt the first.
type StreamSink struct {
	w         io.Writer
	published string
	written   int64
}

func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Name() string {
	return "stream"
}

func (s *StreamSink) Kind() string {
	return "stream"
}

// Write copies the archive named name to the stream.
func (s *StreamSink) Write(ctx context.Context, name string, archive io.Reader) error {
	if s.published != "" {
		return fmt.Errorf("cannot stream %s: %s was already streamed", name, s.published)
	}
	s.published = name

	n, err := io.Copy(s.w, archive)
	s.written += n
	if err != nil {
		return fmt.Errorf("failed to stream %s: %w", name, err)
	}
	return nil
}

// Written reports how many archive bytes reached the stream.
func (s *StreamSink) Written() int64 {
	return s.written
}

// Close flushes buffered writers such as a bufio.Writer around stdout.
func (s *StreamSink) Close(ctx context.Context) error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush stream: %w", err)
		}
	}
	return nil
}

var _ engine.Sink = (*StreamSink)(nil)
