package frame

import (
	"errors"
	"fmt"

	"github.com/BTOON-project/btoon-core/compress"
	"github.com/BTOON-project/btoon-core/errs"
	"github.com/BTOON-project/btoon-core/format"
)

// Wrap compresses data with the given algorithm and level and prepends the
// frame header.
//
// When the algorithm cannot shrink the input (incompressible payloads, or
// output at least as large as the input), the payload is stored raw under
// algorithm none. The choice depends only on the input bytes, keeping
// framed output deterministic.
func Wrap(data []byte, algorithm format.CompressionType, level int) ([]byte, error) {
	codec, err := compress.CreateCodec(algorithm, level)
	if err != nil {
		return nil, err
	}

	compressed, err := codec.Compress(data)
	switch {
	case errors.Is(err, compress.ErrIncompressible):
		algorithm = format.CompressionNone
		compressed = data
	case err != nil:
		return nil, fmt.Errorf("frame compression failed: %w", err)
	case algorithm != format.CompressionNone && len(compressed) >= len(data):
		algorithm = format.CompressionNone
		compressed = data
	}

	header := NewHeader(algorithm, uint32(len(compressed)), uint32(len(data)))
	out := make([]byte, 0, format.FrameHeaderSize+len(compressed))
	out = header.Append(out)
	out = append(out, compressed...)

	return out, nil
}

// Unwrap recovers the original payload from a framed buffer.
//
// The declared compressed size must equal the bytes following the header,
// the ratio of uncompressed to compressed size must not exceed maxRatio
// (checked before the decompressor runs), and the decompressed output must
// match the declared uncompressed size exactly.
func Unwrap(data []byte, maxRatio int) ([]byte, error) {
	var header Header
	if err := header.Parse(data); err != nil {
		return nil, err
	}

	payload := data[format.FrameHeaderSize:]
	if len(payload) != int(header.CompressedSize) {
		return nil, errs.Newf(errs.KindLengthMismatch, 8,
			"frame declares %d compressed bytes, %d follow the header", header.CompressedSize, len(payload))
	}

	if !header.Algorithm.Valid() {
		return nil, errs.Newf(errs.KindUnsupportedAlgorithm, 5, "frame algorithm %d", uint8(header.Algorithm))
	}

	if exceedsRatio(header.UncompressedSize, header.CompressedSize, maxRatio) {
		return nil, errs.Newf(errs.KindDecompressionBomb, 12,
			"frame declares %d bytes from %d compressed, ratio guard is %d",
			header.UncompressedSize, header.CompressedSize, maxRatio)
	}

	codec, err := compress.GetCodec(header.Algorithm)
	if err != nil {
		return nil, errs.Newf(errs.KindUnsupportedAlgorithm, 5, "frame algorithm %d", uint8(header.Algorithm))
	}

	out, err := codec.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("frame decompression failed: %w", err)
	}
	if len(out) != int(header.UncompressedSize) {
		return nil, errs.Newf(errs.KindLengthMismatch, 12,
			"frame declares %d uncompressed bytes, decompressor produced %d", header.UncompressedSize, len(out))
	}

	// Algorithm none aliases the input; decoded output must own its bytes.
	if header.Algorithm == format.CompressionNone {
		owned := make([]byte, len(out))
		copy(owned, out)
		out = owned
	}

	return out, nil
}

// exceedsRatio reports whether uncompressed/compressed exceeds maxRatio,
// without dividing so a zero compressed size cannot sneak past the guard.
func exceedsRatio(uncompressed, compressed uint32, maxRatio int) bool {
	if compressed == 0 {
		return uncompressed > 0
	}

	return uint64(uncompressed) > uint64(compressed)*uint64(maxRatio)
}
