// Package frame implements the BTOON compression envelope: a 16-byte
// self-describing header that wraps a compressed codec payload with the
// algorithm and both sizes, so the decoder can cross-check every claim
// before and after decompression.
package frame

import (
	"github.com/BTOON-project/btoon-core/endian"
	"github.com/BTOON-project/btoon-core/errs"
	"github.com/BTOON-project/btoon-core/format"
)

var wire = endian.GetBigEndianEngine()

// Header is the fixed-size frame header preceding the compressed payload.
type Header struct {
	// Version is the frame version, currently 1. byte offset 4
	Version uint8
	// Algorithm selects the compression codec. byte offset 5
	Algorithm format.CompressionType
	// CompressedSize is the length of the payload after the header. byte offset 8-11
	CompressedSize uint32
	// UncompressedSize is the length of the original encoded bytes. byte offset 12-15
	UncompressedSize uint32
}

// NewHeader creates a version-1 header for the given algorithm and sizes.
func NewHeader(algorithm format.CompressionType, compressedSize, uncompressedSize uint32) *Header {
	return &Header{
		Version:          format.FrameVersion,
		Algorithm:        algorithm,
		CompressedSize:   compressedSize,
		UncompressedSize: uncompressedSize,
	}
}

// Parse parses the header from the first 16 bytes of data.
//
// It fails with LengthMismatch when data is shorter than a header, and
// with UnsupportedVersion on any version other than 1. The reserved bytes
// are ignored on read; the validator reports non-zero values as a warning.
func (h *Header) Parse(data []byte) error {
	if len(data) < format.FrameHeaderSize {
		return errs.Newf(errs.KindLengthMismatch, 0, "frame header needs %d bytes, have %d", format.FrameHeaderSize, len(data))
	}
	if wire.Uint32(data[0:4]) != format.FrameMagic {
		return errs.New(errs.KindLengthMismatch, 0, "missing frame magic")
	}
	h.Version = data[4]
	if h.Version != format.FrameVersion {
		return errs.Newf(errs.KindUnsupportedVersion, 4, "frame version %d, want %d", h.Version, format.FrameVersion)
	}
	h.Algorithm = format.CompressionType(data[5])
	h.CompressedSize = wire.Uint32(data[8:12])
	h.UncompressedSize = wire.Uint32(data[12:16])

	return nil
}

// Append appends the 16-byte wire form of h to dst, writing the reserved
// bytes as zero.
func (h *Header) Append(dst []byte) []byte {
	dst = wire.AppendUint32(dst, format.FrameMagic)
	dst = append(dst, h.Version, uint8(h.Algorithm), 0, 0)
	dst = wire.AppendUint32(dst, h.CompressedSize)
	dst = wire.AppendUint32(dst, h.UncompressedSize)

	return dst
}

// Detect reports whether data begins with a well-formed frame: the magic
// bytes "BTON" followed by a version byte of 1.
//
// The magic's first byte is a legal positive fixint, so the version check
// is part of detection; a caller whose uncompressed payloads may still
// collide must decode with auto-decompress off.
func Detect(data []byte) bool {
	return len(data) >= format.FrameHeaderSize &&
		wire.Uint32(data[0:4]) == format.FrameMagic &&
		data[4] == format.FrameVersion
}
