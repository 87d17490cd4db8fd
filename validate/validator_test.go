package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BTOON-project/btoon-core/codec"
	"github.com/BTOON-project/btoon-core/errs"
	"github.com/BTOON-project/btoon-core/format"
)

func newValidator(t *testing.T, opts ...Option) *Validator {
	t.Helper()
	v, err := New(opts...)
	require.NoError(t, err)

	return v
}

func encode(t *testing.T, v codec.Value, opts ...codec.EncodeOption) []byte {
	t.Helper()
	data, err := codec.Encode(v, opts...)
	require.NoError(t, err)

	return data
}

func TestValidateValidData(t *testing.T) {
	v := newValidator(t)
	values := []codec.Value{
		codec.Uint(42),
		codec.String("Hello, BTOON!"),
		codec.Array(codec.Uint(1), codec.Uint(2), codec.Uint(3)),
		codec.Map(map[string]codec.Value{"key": codec.String("value"), "number": codec.Uint(123)}),
		codec.Timestamp(1700000000),
		codec.VectorDouble([]float64{1, 2, 3}),
	}
	for _, val := range values {
		report := v.Validate(encode(t, val))
		require.True(t, report.Valid)
		require.Empty(t, report.Errors)
		require.Empty(t, report.Warnings)
	}
}

func TestValidateTruncatedData(t *testing.T) {
	v := newValidator(t)
	report := v.Validate([]byte{0xda, 0x00, 0x10})
	require.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	require.Equal(t, errs.KindOutOfBounds, report.Errors[0].Kind)
}

func TestValidateAccumulatesDistinctErrors(t *testing.T) {
	// A truncated string claim followed by an unknown tag: the decoder
	// stops at the first problem, the validator reports both.
	data := []byte{0xda, 0x00, 0x10, 'h', 'i', 0xc1}
	report := newValidator(t).Validate(data)

	require.False(t, report.Valid)
	require.GreaterOrEqual(t, len(report.Errors), 2)
	require.Equal(t, errs.KindOutOfBounds, report.Errors[0].Kind)
	require.Equal(t, errs.KindUnknownTag, report.Errors[len(report.Errors)-1].Kind)
	require.NotEqual(t, report.Errors[0].Offset, report.Errors[len(report.Errors)-1].Offset)
}

func TestValidateInvalidUTF8(t *testing.T) {
	data := []byte{0xa4, 0xff, 0xff, 0xff, 0xff}

	report := newValidator(t).Validate(data)
	require.False(t, report.Valid)
	require.Equal(t, errs.KindInvalidUTF8, report.Errors[0].Kind)

	report = newValidator(t, WithRequireUTF8(false)).Validate(data)
	require.True(t, report.Valid)
}

func TestValidateDepthLimit(t *testing.T) {
	deep := make([]byte, 0, 201)
	for i := 0; i < 200; i++ {
		deep = append(deep, 0x91)
	}
	deep = append(deep, 0xc0)

	report := newValidator(t).Validate(deep)
	require.False(t, report.Valid)
	require.Equal(t, errs.KindDepthExceeded, report.Errors[0].Kind)

	report = newValidator(t, WithMaxDepth(300)).Validate(deep)
	require.True(t, report.Valid)
}

func TestValidateHugeStringClaim(t *testing.T) {
	// str32 claiming 2 GiB with one byte present.
	report := newValidator(t).Validate([]byte{0xdb, 0x7f, 0xff, 0xff, 0xff, 'a'})
	require.False(t, report.Valid)
	require.Equal(t, errs.KindOutOfBounds, report.Errors[0].Kind)
}

func TestValidateStringLengthLimit(t *testing.T) {
	data := encode(t, codec.String("this string is rather long"))

	report := newValidator(t, WithMaxStringLength(10)).Validate(data)
	require.False(t, report.Valid)
	require.Equal(t, errs.KindLengthMismatch, report.Errors[0].Kind)
}

func TestValidateContainerSizeLimits(t *testing.T) {
	arr := encode(t, codec.Array(codec.Uint(1), codec.Uint(2), codec.Uint(3)))
	report := newValidator(t, WithMaxArraySize(2)).Validate(arr)
	require.False(t, report.Valid)

	m := encode(t, codec.Map(map[string]codec.Value{"a": codec.Nil(), "b": codec.Nil()}))
	report = newValidator(t, WithMaxMapSize(1)).Validate(m)
	require.False(t, report.Valid)
}

func TestValidateTotalSizeBudget(t *testing.T) {
	big := encode(t, codec.Binary(make([]byte, 4096)))
	report := newValidator(t, WithMaxTotalSize(1024)).Validate(big)
	require.False(t, report.Valid)
}

func TestValidateDuplicateKeys(t *testing.T) {
	data := []byte{0x82, 0xa1, 'a', 0x01, 0xa1, 'a', 0x02}

	report := newValidator(t).Validate(data)
	require.False(t, report.Valid)
	require.Equal(t, errs.KindDuplicateKey, report.Errors[0].Kind)

	report = newValidator(t, WithAllowDuplicateKeys(true)).Validate(data)
	require.True(t, report.Valid)
	require.NotEmpty(t, report.Warnings)
	require.Equal(t, errs.KindDuplicateKey, report.Warnings[0].Kind)
}

func TestValidateKeyOrderWarning(t *testing.T) {
	data := []byte{0x82, 0xa1, 'b', 0x01, 0xa1, 'a', 0x02}
	report := newValidator(t).Validate(data)

	// Out-of-order keys decode outside strict mode, so the validator
	// warns rather than rejects.
	require.True(t, report.Valid)
	require.Equal(t, errs.KindKeyOrder, report.Warnings[0].Kind)
}

func TestValidateTrailingBytesWarning(t *testing.T) {
	report := newValidator(t).Validate([]byte{0xc0, 0xc0})
	require.True(t, report.Valid)
	require.Equal(t, errs.KindTrailingBytes, report.Warnings[0].Kind)
}

func TestValidateReservedExtensionWarning(t *testing.T) {
	report := newValidator(t).Validate([]byte{0xc7, 0x02, 0xf5, 0xaa, 0xbb})
	require.True(t, report.Valid)
	require.Equal(t, errs.KindInvalidExtension, report.Warnings[0].Kind)
}

func TestValidateExtensionShapes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"timestamp wrong length", []byte{0xd5, 0xff, 0x00, 0x00}},
		{"vector float misaligned", []byte{0xc7, 0x03, 0xfb, 0x00, 0x00, 0x00}},
		{"bigint empty", []byte{0xc7, 0x00, 0xfc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := newValidator(t).Validate(tt.data)
			require.False(t, report.Valid)
			require.Equal(t, errs.KindInvalidExtension, report.Errors[0].Kind)
		})
	}
}

func TestValidateTabular(t *testing.T) {
	v := codec.Array(
		codec.Map(map[string]codec.Value{"a": codec.Uint(1), "b": codec.String("x")}),
		codec.Map(map[string]codec.Value{"a": codec.Uint(2), "b": codec.String("y")}),
	)
	data := encode(t, v)

	report := newValidator(t).Validate(data)
	require.True(t, report.Valid)
	require.Equal(t, uint64(1), report.Stats.CountByTag["tabular"])
	require.Equal(t, uint64(2), report.Stats.CountByTag["uint"])
	require.Equal(t, uint64(2), report.Stats.CountByTag["string"])
}

func TestValidateTabularBadVersion(t *testing.T) {
	v := codec.Array(
		codec.Map(map[string]codec.Value{"a": codec.Uint(1)}),
		codec.Map(map[string]codec.Value{"a": codec.Uint(2)}),
	)
	data := encode(t, v)
	// The version field is the first payload word after the ext8 header.
	data[3+3] = 9

	report := newValidator(t).Validate(data)
	require.False(t, report.Valid)
	require.Equal(t, errs.KindUnsupportedVersion, report.Errors[0].Kind)
}

func TestValidateFramedPayload(t *testing.T) {
	v := codec.Map(map[string]codec.Value{"payload": codec.Binary(make([]byte, 2048))})
	data := encode(t, v, codec.WithCompressionAlgorithm(format.CompressionZstd))

	report := newValidator(t).Validate(data)
	require.True(t, report.Valid)
	require.Equal(t, uint64(1), report.Stats.CountByTag["map"])
	require.Equal(t, len(data), report.Stats.TotalBytes)
}

func TestValidateFrameBomb(t *testing.T) {
	framed := append([]byte("BTON"), 1, 0, 0, 0)
	framed = append(framed, 0x00, 0x00, 0x00, 0x10) // compressed_size 16
	framed = append(framed, 0x40, 0x00, 0x00, 0x00) // uncompressed_size 2^30
	framed = append(framed, make([]byte, 16)...)

	report := newValidator(t).Validate(framed)
	require.False(t, report.Valid)
	require.Equal(t, errs.KindDecompressionBomb, report.Errors[0].Kind)
}

func TestValidateFrameBadAlgorithm(t *testing.T) {
	framed := append([]byte("BTON"), 1, 77, 0, 0)
	framed = append(framed, 0x00, 0x00, 0x00, 0x00)
	framed = append(framed, 0x00, 0x00, 0x00, 0x00)

	report := newValidator(t).Validate(framed)
	require.False(t, report.Valid)
	require.Equal(t, errs.KindUnsupportedAlgorithm, report.Errors[0].Kind)
}

func TestValidateStats(t *testing.T) {
	v := codec.Array(
		codec.Uint(1),
		codec.String("two"),
		codec.Array(codec.Nil()),
	)
	data := encode(t, v)

	report := newValidator(t).Validate(data)
	require.True(t, report.Valid)
	require.NotNil(t, report.Stats)
	require.Equal(t, 2, report.Stats.MaxDepth)
	require.Equal(t, uint64(2), report.Stats.CountByTag["array"])
	require.Equal(t, uint64(1), report.Stats.CountByTag["nil"])
	require.Equal(t, len(data), report.Stats.TotalBytes)
	require.NotZero(t, report.Stats.Digest)
}

func TestFastModeSkipsStats(t *testing.T) {
	report := newValidator(t, WithFastMode(true)).Validate([]byte{0xc0})
	require.True(t, report.Valid)
	require.Nil(t, report.Stats)
}

func TestQuickCheck(t *testing.T) {
	v := newValidator(t)
	require.True(t, v.QuickCheck([]byte{0xc0}))
	require.False(t, v.QuickCheck([]byte{0xc1}))
	require.False(t, v.QuickCheck([]byte{0xda, 0x00, 0x10}))
}

func TestValidatorAgreesWithDecoder(t *testing.T) {
	// validate(b).valid implies decode(b) succeeds.
	inputs := [][]byte{
		encode(t, codec.Nil()),
		encode(t, codec.Map(map[string]codec.Value{"a": codec.Uint(1), "b": codec.Float(2.5)})),
		encode(t, codec.Array(codec.Timestamp(1), codec.BigInt([]byte{1, 2}))),
		{0xc0},
		{0xc1},
		{0xda, 0x00, 0x10, 'h', 'i'},
		{0x91, 0x91, 0x91},
	}
	v := newValidator(t)
	for _, in := range inputs {
		if v.Validate(in).Valid {
			_, err := codec.Decode(in)
			require.NoError(t, err, "validator accepted %x but decoder rejected", in)
		}
	}
}

func TestValidateNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0xc7},
		{0xc9, 0xff, 0xff, 0xff, 0xff, 0xf6},
		{0xde, 0xff, 0xff},
		{0xdd, 0xff, 0xff, 0xff, 0xff, 0x91},
		append([]byte("BTON"), 1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0, 0, 0, 1),
	}
	v := newValidator(t)
	for _, in := range inputs {
		require.NotPanics(t, func() { v.Validate(in) })
	}
}

func TestOptionValidation(t *testing.T) {
	_, err := New(WithMaxDepth(0))
	require.Error(t, err)
}
