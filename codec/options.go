package codec

import (
	"fmt"

	"github.com/BTOON-project/btoon-core/format"
	"github.com/BTOON-project/btoon-core/internal/options"
)

// Default limits and thresholds.
const (
	// DefaultMaxDepth is the decoder's nesting depth limit.
	DefaultMaxDepth = 128
	// DefaultMinCompressionSize is the smallest payload the encoder wraps in
	// a compression frame.
	DefaultMinCompressionSize = 256
	// DefaultMaxDecompressionRatio is the decompression bomb guard:
	// uncompressed/compressed ratios above it are rejected before the
	// decompressor runs.
	DefaultMaxDecompressionRatio = 1024
	// AdaptiveZstdThreshold is the payload size at which adaptive selection
	// switches from zlib to zstd.
	AdaptiveZstdThreshold = 64 * 1024
)

// EncodeConfig holds the resolved encoder configuration.
type EncodeConfig struct {
	Compress            bool
	Algorithm           format.CompressionType
	Level               int
	AutoTabular         bool
	AdaptiveCompression bool
	MinCompressionSize  int
}

// EncodeOption is a functional option configuring an encode call.
type EncodeOption = options.Option[*EncodeConfig]

// NewEncodeConfig returns the default encoder configuration with opts
// applied: no compression, tabular detection on.
func NewEncodeConfig(opts ...EncodeOption) (*EncodeConfig, error) {
	cfg := &EncodeConfig{
		Algorithm:          format.CompressionNone,
		AutoTabular:        true,
		MinCompressionSize: DefaultMinCompressionSize,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WithCompression enables or disables the compression envelope.
func WithCompression(enabled bool) EncodeOption {
	return options.NoError(func(cfg *EncodeConfig) {
		cfg.Compress = enabled
		if enabled && cfg.Algorithm == format.CompressionNone && !cfg.AdaptiveCompression {
			cfg.Algorithm = format.CompressionZlib
		}
	})
}

// WithCompressionAlgorithm selects the frame algorithm and implies
// WithCompression(true) for any algorithm other than none.
func WithCompressionAlgorithm(algorithm format.CompressionType) EncodeOption {
	return options.New(func(cfg *EncodeConfig) error {
		if !algorithm.Valid() {
			return fmt.Errorf("invalid compression algorithm: %d", uint8(algorithm))
		}
		cfg.Algorithm = algorithm
		if algorithm != format.CompressionNone {
			cfg.Compress = true
		}

		return nil
	})
}

// WithCompressionLevel sets the algorithm-specific compression level.
// Zero selects the library default.
func WithCompressionLevel(level int) EncodeOption {
	return options.NoError(func(cfg *EncodeConfig) {
		cfg.Level = level
	})
}

// WithAutoTabular toggles columnar encoding of uniform-map arrays.
func WithAutoTabular(enabled bool) EncodeOption {
	return options.NoError(func(cfg *EncodeConfig) {
		cfg.AutoTabular = enabled
	})
}

// WithAdaptiveCompression lets the encoder pick the frame algorithm from
// the payload size. The selection rule is deterministic in the input length
// but may change between library versions; pin an algorithm for byte-exact
// output. The chosen codec runs at its default level; WithCompressionLevel
// does not apply.
func WithAdaptiveCompression(enabled bool) EncodeOption {
	return options.NoError(func(cfg *EncodeConfig) {
		cfg.AdaptiveCompression = enabled
		if enabled {
			cfg.Compress = true
		}
	})
}

// WithMinCompressionSize sets the payload size below which the encoder
// skips the compression envelope entirely.
func WithMinCompressionSize(size int) EncodeOption {
	return options.New(func(cfg *EncodeConfig) error {
		if size < 0 {
			return fmt.Errorf("min compression size must be non-negative, got %d", size)
		}
		cfg.MinCompressionSize = size

		return nil
	})
}

// DecodeConfig holds the resolved decoder configuration.
type DecodeConfig struct {
	AutoDecompress bool
	Strict         bool
	MaxDepth       int
	MaxRatio       int
}

// DecodeOption is a functional option configuring a decode call.
type DecodeOption = options.Option[*DecodeConfig]

// NewDecodeConfig returns the default decoder configuration with opts
// applied: auto-decompress on, strict mode on, depth limit 128.
func NewDecodeConfig(opts ...DecodeOption) (*DecodeConfig, error) {
	cfg := &DecodeConfig{
		AutoDecompress: true,
		Strict:         true,
		MaxDepth:       DefaultMaxDepth,
		MaxRatio:       DefaultMaxDecompressionRatio,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WithAutoDecompress toggles transparent unwrapping of compression frames.
// When off, framed input decodes as whatever the raw bytes spell, so
// callers whose payloads may legitimately begin with the frame magic must
// disable it.
func WithAutoDecompress(enabled bool) DecodeOption {
	return options.NoError(func(cfg *DecodeConfig) {
		cfg.AutoDecompress = enabled
	})
}

// WithStrictMode toggles strict decoding: UTF-8 validation of strings,
// strictly ascending unique map keys, and rejection of trailing bytes.
func WithStrictMode(enabled bool) DecodeOption {
	return options.NoError(func(cfg *DecodeConfig) {
		cfg.Strict = enabled
	})
}

// WithMaxDepth sets the recursion depth limit.
func WithMaxDepth(depth int) DecodeOption {
	return options.New(func(cfg *DecodeConfig) error {
		if depth <= 0 {
			return fmt.Errorf("max depth must be positive, got %d", depth)
		}
		cfg.MaxDepth = depth

		return nil
	})
}

// WithMaxDecompressionRatio sets the decompression bomb guard.
func WithMaxDecompressionRatio(ratio int) DecodeOption {
	return options.New(func(cfg *DecodeConfig) error {
		if ratio <= 0 {
			return fmt.Errorf("max decompression ratio must be positive, got %d", ratio)
		}
		cfg.MaxRatio = ratio

		return nil
	})
}
