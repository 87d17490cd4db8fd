package btoon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BTOON-project/btoon-core/errs"
	"github.com/BTOON-project/btoon-core/format"
)

func record(i int) Value {
	return Map(map[string]Value{
		"id":     Uint(uint64(i)),
		"label":  String("record"),
		"weight": Float(float64(i) * 1.5),
	})
}

func dataset(n int) Value {
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = record(i)
	}

	return ArrayOf(elems)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"title":   String("end to end"),
		"count":   Uint(7),
		"ratio":   Float(0.25),
		"when":    Timestamp(1700000000),
		"raw":     Binary([]byte{1, 2, 3}),
		"vectors": VectorFloat([]float32{0.1, 0.2}),
	})
	data, err := Encode(v)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	require.True(t, v.Equal(back))
}

func TestEnvelopeEquivalence(t *testing.T) {
	v := dataset(200)
	algorithms := []format.CompressionType{
		format.CompressionZlib,
		format.CompressionLZ4,
		format.CompressionZstd,
		format.CompressionS2,
	}
	plain, err := Encode(v)
	require.NoError(t, err)

	for _, algo := range algorithms {
		t.Run(algo.String(), func(t *testing.T) {
			data, err := Encode(v, WithCompressionAlgorithm(algo))
			require.NoError(t, err)
			require.NotEqual(t, plain, data)

			back, err := Decode(data)
			require.NoError(t, err)
			require.True(t, v.Equal(back))
		})
	}
}

func TestAdaptiveCompressionDecodes(t *testing.T) {
	for _, n := range []int{50, 5000} {
		v := dataset(n)
		data, err := Encode(v, WithAdaptiveCompression(true))
		require.NoError(t, err)

		back, err := Decode(data)
		require.NoError(t, err)
		require.True(t, v.Equal(back))
	}
}

func TestMinCompressionSizeSkipsFrame(t *testing.T) {
	v := String("small")
	data, err := Encode(v, WithCompressionAlgorithm(format.CompressionZstd))
	require.NoError(t, err)
	// Below the minimum size the encoder emits bare wire bytes.
	require.Equal(t, uint8(0xa5), data[0])
}

func TestAutoDecompressOff(t *testing.T) {
	v := dataset(100)
	data, err := Encode(v, WithCompressionAlgorithm(format.CompressionZlib))
	require.NoError(t, err)

	_, err = Decode(data, WithAutoDecompress(false))
	require.Error(t, err)
}

func TestTabularEndToEnd(t *testing.T) {
	v := dataset(64)
	require.True(t, IsTabular(v))

	tabular, err := Encode(v)
	require.NoError(t, err)
	generic, err := Encode(v, WithAutoTabular(false))
	require.NoError(t, err)
	require.Less(t, len(tabular), len(generic))

	fromTabular, err := Decode(tabular)
	require.NoError(t, err)
	fromGeneric, err := Decode(generic)
	require.NoError(t, err)
	require.True(t, fromTabular.Equal(fromGeneric))
	require.True(t, v.Equal(fromTabular))
}

func TestValidateWrapper(t *testing.T) {
	data, err := Encode(dataset(10))
	require.NoError(t, err)

	report := Validate(data)
	require.True(t, report.Valid)
	require.NotNil(t, report.Stats)
	require.Equal(t, report.Stats.Digest, Fingerprint(data))

	report = Validate([]byte{0xc1})
	require.False(t, report.Valid)
}

func TestValidatorAgreementOnFramedData(t *testing.T) {
	data, err := Encode(dataset(128), WithCompressionAlgorithm(format.CompressionZstd))
	require.NoError(t, err)

	require.True(t, Validate(data).Valid)
	_, err = Decode(data)
	require.NoError(t, err)
}

func TestQuickCheckWrapper(t *testing.T) {
	data, err := Encode(Nil())
	require.NoError(t, err)
	require.True(t, QuickCheck(data))
	require.False(t, QuickCheck([]byte{0xc1}))
}

func TestCompressDecompressWrappers(t *testing.T) {
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i / 64)
	}

	for _, algo := range []format.CompressionType{
		format.CompressionZlib, format.CompressionLZ4, format.CompressionZstd,
	} {
		compressed, err := Compress(algo, payload, 0)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(payload))

		out, err := Decompress(algo, compressed)
		require.NoError(t, err)
		require.Equal(t, payload, out)
	}

	_, err := Compress(format.CompressionType(9), payload, 0)
	require.Error(t, err)
}

func TestDecodeErrorCarriesKindAndOffset(t *testing.T) {
	_, err := Decode([]byte{0xda, 0x00, 0x10, 'h', 'i'})
	require.ErrorIs(t, err, errs.ErrOutOfBounds)
	require.Equal(t, 3, errs.OffsetOf(err))
}

func TestIdempotentEncodeAcrossPipeline(t *testing.T) {
	v := dataset(32)
	first, err := Encode(v, WithCompressionAlgorithm(format.CompressionZlib))
	require.NoError(t, err)

	back, err := Decode(first)
	require.NoError(t, err)
	second, err := Encode(back, WithCompressionAlgorithm(format.CompressionZlib))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestConcurrentUse(t *testing.T) {
	v := dataset(50)
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			data, err := Encode(v, WithCompressionAlgorithm(format.CompressionLZ4))
			if err != nil {
				done <- err
				return
			}
			back, err := Decode(data)
			if err == nil && !v.Equal(back) {
				err = errors.New("decoded value differs")
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
