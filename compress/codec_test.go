package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BTOON-project/btoon-core/format"
)

// compressible returns a payload with enough repetition for every
// algorithm to shrink it.
func compressible(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i / 32)
	}

	return data
}

func TestRoundTripAllAlgorithms(t *testing.T) {
	algorithms := []format.CompressionType{
		format.CompressionNone,
		format.CompressionZlib,
		format.CompressionLZ4,
		format.CompressionZstd,
		format.CompressionS2,
	}
	payload := compressible(16 * 1024)

	for _, algo := range algorithms {
		t.Run(algo.String(), func(t *testing.T) {
			codec, err := CreateCodec(algo, 0)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			if algo != format.CompressionNone {
				require.Less(t, len(compressed), len(payload))
			}

			out, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.True(t, bytes.Equal(payload, out))
		})
	}
}

func TestRoundTripLevels(t *testing.T) {
	payload := compressible(32 * 1024)
	for _, algo := range []format.CompressionType{format.CompressionZlib, format.CompressionLZ4, format.CompressionZstd} {
		for _, level := range []int{0, 1, 5, 9} {
			codec, err := CreateCodec(algo, level)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			out, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.True(t, bytes.Equal(payload, out), "%s level %d", algo, level)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	for _, algo := range []format.CompressionType{
		format.CompressionZlib, format.CompressionLZ4, format.CompressionZstd, format.CompressionS2,
	} {
		codec, err := CreateCodec(algo, 0)
		require.NoError(t, err)

		compressed, err := codec.Compress(nil)
		require.NoError(t, err)
		require.Nil(t, compressed)

		out, err := codec.Decompress(nil)
		require.NoError(t, err)
		require.Nil(t, out)
	}
}

func TestCreateCodecRejectsUnknown(t *testing.T) {
	_, err := CreateCodec(format.CompressionType(7), 0)
	require.Error(t, err)

	_, err = GetCodec(format.CompressionType(7))
	require.Error(t, err)
}

func TestNoOpPassthrough(t *testing.T) {
	codec := NewNoOpCodec()
	payload := []byte{1, 2, 3}

	out, err := codec.Compress(payload)
	require.NoError(t, err)
	require.Equal(t, payload, out)

	out, err = codec.Decompress(payload)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestZstdDecompressRejectsGarbage(t *testing.T) {
	codec := NewZstdCodec(0)
	_, err := codec.Decompress([]byte{0xde, 0xad, 0xbe, 0xef})
	require.Error(t, err)
}

func TestZlibDecompressRejectsGarbage(t *testing.T) {
	codec := NewZlibCodec(0)
	_, err := codec.Decompress([]byte{0x00, 0x01, 0x02, 0x03})
	require.Error(t, err)
}
