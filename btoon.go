// Package btoon implements BTOON, a binary serialization format that
// extends MessagePack with a columnar layout for arrays of uniform maps,
// framed payload compression, and domain extension types for dates,
// big integers and packed float vectors.
//
// # Core Features
//
//   - MessagePack-compatible wire grammar, big-endian throughout
//   - Canonical encoding: map keys always emitted in ascending byte order
//   - Columnar "tabular" encoding of uniform record arrays (private extension)
//   - Framed compression with zlib, lz4 and zstd, plus size cross-checks
//     and a decompression bomb guard on the way back in
//   - A defensive decoder: bounds-checked, depth-limited, panic-free on
//     adversarial input
//   - A non-throwing validator that reports every problem it can find
//     instead of stopping at the first
//
// # Basic Usage
//
// Encoding and decoding a value:
//
//	v := btoon.Map(map[string]btoon.Value{
//	    "name": btoon.String("Alice"),
//	    "age":  btoon.Uint(30),
//	})
//	data, _ := btoon.Encode(v)
//	back, _ := btoon.Decode(data)
//
// Compressed output:
//
//	data, _ := btoon.Encode(v,
//	    btoon.WithCompressionAlgorithm(format.CompressionZstd))
//
// Validating untrusted input before decoding:
//
//	report := btoon.Validate(data)
//	if !report.Valid {
//	    for _, issue := range report.Errors {
//	        log.Println(issue)
//	    }
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the codec,
// frame, compress and validate packages, which expose the fine-grained
// API.
package btoon

import (
	"github.com/cespare/xxhash/v2"

	"github.com/BTOON-project/btoon-core/codec"
	"github.com/BTOON-project/btoon-core/compress"
	"github.com/BTOON-project/btoon-core/format"
	"github.com/BTOON-project/btoon-core/validate"
)

// Version is the library version.
const Version = "1.0.0"

// Value is the BTOON value universe. See the codec package for the
// constructors and accessors.
type Value = codec.Value

// Kind identifies a Value variant.
type Kind = codec.Kind

// MapEntry is a key/value pair of a Map value.
type MapEntry = codec.MapEntry

// EncodeOption configures Encode.
type EncodeOption = codec.EncodeOption

// DecodeOption configures Decode.
type DecodeOption = codec.DecodeOption

// Constructors, re-exported so common code only imports this package.
var (
	Nil          = codec.Nil
	Bool         = codec.Bool
	Int          = codec.Int
	Uint         = codec.Uint
	Float        = codec.Float
	String       = codec.String
	Binary       = codec.Binary
	Array        = codec.Array
	ArrayOf      = codec.ArrayOf
	Map          = codec.Map
	MapOf        = codec.MapOf
	Timestamp    = codec.Timestamp
	Date         = codec.Date
	DateTime     = codec.DateTime
	BigInt       = codec.BigInt
	VectorFloat  = codec.VectorFloat
	VectorDouble = codec.VectorDouble
	Extension    = codec.Extension
)

// Encode options.
var (
	WithCompression          = codec.WithCompression
	WithCompressionAlgorithm = codec.WithCompressionAlgorithm
	WithCompressionLevel     = codec.WithCompressionLevel
	WithAutoTabular          = codec.WithAutoTabular
	WithAdaptiveCompression  = codec.WithAdaptiveCompression
	WithMinCompressionSize   = codec.WithMinCompressionSize
)

// Decode options.
var (
	WithAutoDecompress        = codec.WithAutoDecompress
	WithStrictMode            = codec.WithStrictMode
	WithMaxDepth              = codec.WithMaxDepth
	WithMaxDecompressionRatio = codec.WithMaxDecompressionRatio
)

// Encode serializes value into BTOON wire bytes.
func Encode(value Value, opts ...EncodeOption) ([]byte, error) {
	return codec.Encode(value, opts...)
}

// Decode recovers a Value from BTOON wire bytes, transparently unwrapping
// compression frames.
func Decode(data []byte, opts ...DecodeOption) (Value, error) {
	return codec.Decode(data, opts...)
}

// IsTabular reports whether v is an array of at least two maps sharing the
// same non-empty key set, i.e. whether it encodes column-wise under
// auto-tabular.
func IsTabular(v Value) bool {
	return codec.IsTabular(v)
}

// Validate walks data against the wire grammar and returns a report of
// every error and warning found, with stats. It never fails on
// adversarial input.
func Validate(data []byte, opts ...validate.Option) *validate.Report {
	v, err := validate.New(opts...)
	if err != nil {
		return &validate.Report{Valid: false, Errors: []validate.Issue{{Message: err.Error()}}}
	}

	return v.Validate(data)
}

// QuickCheck is a cheap validity probe over data with default limits.
func QuickCheck(data []byte) bool {
	v, _ := validate.New(validate.WithFastMode(true))
	return v.Validate(data).Valid
}

// Compress compresses data with the given algorithm. Level 0 selects the
// library default. The output is a bare codec payload, not a frame; Encode
// with WithCompression produces framed output.
func Compress(algorithm format.CompressionType, data []byte, level int) ([]byte, error) {
	c, err := compress.CreateCodec(algorithm, level)
	if err != nil {
		return nil, err
	}

	return c.Compress(data)
}

// Decompress reverses Compress for the given algorithm.
func Decompress(algorithm format.CompressionType, data []byte) ([]byte, error) {
	c, err := compress.GetCodec(algorithm)
	if err != nil {
		return nil, err
	}

	return c.Decompress(data)
}

// Fingerprint returns the xxHash64 of data, the digest the validator
// reports in its stats. Useful for deduplicating encoded payloads.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}
