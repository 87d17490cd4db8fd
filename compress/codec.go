// Package compress provides the block compression codecs behind the BTOON
// compression envelope: zlib, lz4 and zstd from the interchange profile,
// plus s2 as a BTOON-Go extension and a no-op passthrough.
//
// Codecs operate on whole payloads. The envelope carries the algorithm and
// both sizes, so decompressors never need streaming state.
package compress

import (
	"fmt"

	"github.com/BTOON-project/btoon-core/format"
)

// Compressor compresses a complete payload.
type Compressor interface {
	// Compress returns the compressed form of data. The returned slice is
	// newly allocated and owned by the caller; data is not modified.
	Compress(data []byte) ([]byte, error)
}

// Decompressor recovers the original payload from compressed data.
type Decompressor interface {
	// Decompress returns the original bytes. The returned slice is newly
	// allocated and owned by the caller; data is not modified.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions of one algorithm.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec creates a Codec for the given algorithm and level. Level 0
// selects each library's default; levels above 0 trade speed for ratio in
// algorithm-specific steps.
func CreateCodec(algorithm format.CompressionType, level int) (Codec, error) {
	switch algorithm {
	case format.CompressionNone:
		return NewNoOpCodec(), nil
	case format.CompressionZlib:
		return NewZlibCodec(level), nil
	case format.CompressionLZ4:
		return NewLZ4Codec(level), nil
	case format.CompressionZstd:
		return NewZstdCodec(level), nil
	case format.CompressionS2:
		return NewS2Codec(), nil
	default:
		return nil, fmt.Errorf("invalid compression algorithm: %d", uint8(algorithm))
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCodec(),
	format.CompressionZlib: NewZlibCodec(0),
	format.CompressionLZ4:  NewLZ4Codec(0),
	format.CompressionZstd: NewZstdCodec(0),
	format.CompressionS2:   NewS2Codec(),
}

// GetCodec retrieves the default-level built-in Codec for algorithm.
func GetCodec(algorithm format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[algorithm]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
}
