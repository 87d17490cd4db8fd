package compress

import "errors"

// ErrIncompressible is returned by a Compressor whose algorithm cannot
// represent the input smaller than it already is. The envelope reacts by
// storing the payload uncompressed under algorithm none.
var ErrIncompressible = errors.New("incompressible input")

// NoOpCodec passes payloads through unchanged. It backs the envelope's
// algorithm 255 (none), which frames a payload for size cross-checking
// without compressing it.
type NoOpCodec struct{}

var _ Codec = NoOpCodec{}

// NewNoOpCodec creates a passthrough codec.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

// Compress returns data unchanged. The returned slice aliases the input.
func (c NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns data unchanged. The returned slice aliases the input.
func (c NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
