package compress

import (
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances; the compressor keeps
// internal hash tables that benefit from reuse.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Codec implements LZ4 block compression, the envelope's algorithm 1.
type LZ4Codec struct {
	level int
}

var _ Codec = LZ4Codec{}

// NewLZ4Codec creates an LZ4 codec. Level 0 uses the fast block
// compressor; levels 1-9 use the high-compression variant.
func NewLZ4Codec(level int) LZ4Codec {
	if level < 0 || level > 9 {
		level = 0
	}

	return LZ4Codec{level: level}
}

// Compress compresses data as a single LZ4 block.
func (c LZ4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	var n int
	var err error
	if c.level == 0 {
		lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
		defer lz4CompressorPool.Put(lc)
		n, err = lc.CompressBlock(data, dst)
	} else {
		hc := lz4.CompressorHC{Level: hcLevel(c.level)}
		n, err = hc.CompressBlock(data, dst)
	}
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// The block compressor signals incompressible input with n == 0;
		// the envelope stores such payloads uncompressed.
		return nil, ErrIncompressible
	}

	return dst[:n], nil
}

// Decompress decompresses an LZ4 block of unknown decoded size.
//
// The decoded size is not stored in the block, so the buffer starts at 4x
// the compressed size and doubles on short-buffer errors up to a 128 MiB
// safety limit. The envelope's ratio guard rejects hostile expansion before
// this path ever runs.
func (c LZ4Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	bufSize := len(data) * 4
	const maxSize = 128 * 1024 * 1024

	for bufSize <= maxSize {
		buf := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(data, buf)
		if err != nil {
			if errors.Is(err, lz4.ErrInvalidSourceShortBuffer) && bufSize < maxSize {
				bufSize *= 2
				continue
			}

			return nil, err
		}

		return buf[:n], nil
	}

	return nil, lz4.ErrInvalidSourceShortBuffer
}

func hcLevel(level int) lz4.CompressionLevel {
	switch level {
	case 1:
		return lz4.Level1
	case 2:
		return lz4.Level2
	case 3:
		return lz4.Level3
	case 4:
		return lz4.Level4
	case 5:
		return lz4.Level5
	case 6:
		return lz4.Level6
	case 7:
		return lz4.Level7
	case 8:
		return lz4.Level8
	default:
		return lz4.Level9
	}
}
