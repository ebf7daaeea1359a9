// Package zipfactory creates and opens ZIP archives through whichever engine
// the process can use, falling back to the other engine when the preferred
// one cannot open a file.
package zipfactory

import (
	"errors"

	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/infracollect/zipfactory/internal/engine/archivers"
	"go.uber.org/zap"
)

type (
	Archiver    = engine.Archiver
	OpenError   = engine.OpenError
	Status      = engine.Status
	Compression = engine.Compression

	// AdapterOption configures an engine adapter built by a constructor.
	AdapterOption = archivers.Option
)

const (
	CompressionDeflate = engine.CompressionDeflate
	CompressionStore   = engine.CompressionStore
	CompressionZstd    = engine.CompressionZstd
)

// ParseCompression validates a compression name; empty means deflate.
func ParseCompression(name string) (Compression, error) {
	return engine.ParseCompression(name)
}

// NativeConstructor builds the native adapter.
type NativeConstructor func(path string, write bool, opts ...AdapterOption) (Archiver, error)

// FallbackConstructor builds the fallback adapter.
type FallbackConstructor func(path string, opts ...AdapterOption) (Archiver, error)

// Factory selects the engine for each archive it creates or opens.
type Factory struct {
	logger      *zap.Logger
	probe       func() bool
	opts        []AdapterOption
	newNative   NativeConstructor
	newFallback FallbackConstructor
}

// Option configures a Factory.
type Option func(*Factory)

func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithProbe replaces NativeAvailable as the capability probe.
func WithProbe(probe func() bool) Option {
	return func(f *Factory) {
		f.probe = probe
	}
}

func WithCompression(c Compression) Option {
	return func(f *Factory) {
		f.opts = append(f.opts, archivers.WithCompression(c))
	}
}

func WithNativeConstructor(c NativeConstructor) Option {
	return func(f *Factory) {
		f.newNative = c
	}
}

func WithFallbackConstructor(c FallbackConstructor) Option {
	return func(f *Factory) {
		f.newFallback = c
	}
}

// New returns a Factory using both built-in engines.
func New(opts ...Option) *Factory {
	f := &Factory{
		logger: zap.NewNop(),
		probe:  NativeAvailable,
		newNative: func(path string, write bool, opts ...archivers.Option) (Archiver, error) {
			return archivers.NewNative(path, write, opts...)
		},
		newFallback: func(path string, opts ...archivers.Option) (Archiver, error) {
			return archivers.NewFallback(path, opts...)
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var defaultFactory = New()

// Create creates or overwrites the archive at path using the default Factory.
// See Factory.Create for how the fallback engine differs.
func Create(path string) (Archiver, error) {
	return defaultFactory.Create(path)
}

// Open opens the existing archive at path using the default Factory.
func Open(path string) (Archiver, error) {
	return defaultFactory.Open(path)
}

// Create creates or overwrites the archive at path.
//
// With the native engine the file is truncated at once. The fallback engine
// has no create mode: adds are appended to an existing archive, so its
// entries survive, and no file is written until the first add. Closing a
// fallback archiver with no adds leaves the path untouched.
func (f *Factory) Create(path string) (Archiver, error) {
	return f.make(path, true)
}

// Open opens the existing archive at path for reading or modification.
func (f *Factory) Open(path string) (Archiver, error) {
	return f.make(path, false)
}

// make tries the preferred engine and, if it reports an OpenError, the other
// one exactly once. The second attempt's error is returned as is.
func (f *Factory) make(path string, write bool) (Archiver, error) {
	native := f.probe()
	logger := f.logger.With(zap.String("path", path), zap.Bool("write", write), zap.Bool("native_available", native))

	archiver, err := f.makeWith(path, !native, write)
	if err == nil {
		logger.Debug("archive opened", zap.String("engine", engineName(!native)))
		return archiver, nil
	}

	var openErr *OpenError
	if !errors.As(err, &openErr) {
		return nil, err
	}

	logger.Warn("preferred engine failed to open archive, retrying with the other engine",
		zap.String("engine", engineName(!native)),
		zap.Int("status", int(openErr.Status)),
		zap.Error(err),
	)

	archiver, err = f.makeWith(path, native, write)
	if err != nil {
		return nil, err
	}
	logger.Debug("archive opened", zap.String("engine", engineName(native)))
	return archiver, nil
}

func (f *Factory) makeWith(path string, fallback, write bool) (Archiver, error) {
	if fallback {
		return f.newFallback(path, f.opts...)
	}
	return f.newNative(path, write, f.opts...)
}

func engineName(fallback bool) string {
	if fallback {
		return "fallback"
	}
	return "native"
}
