//go:build nobuild

package compress

import (
	"github.com/valyala/gozstd"
)

// Compress compresses data as a zstd frame through libzstd.
func (c ZstdCodec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	level := c.level
	if level == 0 {
		level = 3
	}

	return gozstd.CompressLevel(nil, data, level), nil
}

// Decompress decompresses a zstd frame through libzstd.
func (c ZstdCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}
