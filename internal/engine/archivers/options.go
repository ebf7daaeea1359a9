package archivers

import (
	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/spf13/afero"
)

type options struct {
	fs          afero.Fs
	compression engine.Compression
}

// Option configures an engine adapter.
type Option func(*options)

// WithFs sets the filesystem the native adapter reads sources from and
// extracts into. The fallback engine always works on the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithCompression sets the method used for new file entries.
func WithCompression(c engine.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func newOptions(opts []Option) options {
	o := options{
		fs:          afero.NewOsFs(),
		compression: engine.CompressionDeflate,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
