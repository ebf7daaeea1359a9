package engine

import (
	"fmt"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Compression defines the method used for new file entries.
type Compression string

const (
	CompressionDeflate Compression = "deflate"
	CompressionStore   Compression = "store"
	CompressionZstd    Compression = "zstd"
)

// ParseCompression validates a compression name. An empty name defaults to
// deflate.
func ParseCompression(name string) (Compression, error) {
	c := Compression(name)
	switch c {
	case "":
		return CompressionDeflate, nil
	case CompressionDeflate, CompressionStore, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported compression type: %s", name)
	}
}

// Method returns the ZIP method number for the compression.
func (c Compression) Method() uint16 {
	switch c {
	case CompressionStore:
		return zip.Store
	case CompressionZstd:
		return zstd.ZipMethodWinZip
	default:
		return zip.Deflate
	}
}
