package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BTOON-project/btoon-core/errs"
)

func TestReaderSequentialReads(t *testing.T) {
	r := NewReader([]byte{
		0x12,
		0x34, 0x56,
		0x00, 0x00, 0x00, 0x2a,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	})

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x12), u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x3456), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(42), u32)

	i64, err := r.ReadInt64()
	require.NoError(t, err)
	require.Equal(t, int64(-1), i64)

	require.Equal(t, 0, r.Remaining())
}

func TestReaderFloats(t *testing.T) {
	r := NewReader([]byte{
		0x3f, 0xc0, 0x00, 0x00, // 1.5 as float32
		0x40, 0x09, 0x21, 0xfb, 0x54, 0x44, 0x2d, 0x18, // pi as float64
	})

	f32, err := r.ReadFloat32()
	require.NoError(t, err)
	require.Equal(t, float32(1.5), f32)

	f64, err := r.ReadFloat64()
	require.NoError(t, err)
	require.InDelta(t, 3.14159265358979, f64, 1e-14)
}

func TestReaderMissLeavesCursorUnchanged(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})

	_, err := r.ReadUint32()
	require.ErrorIs(t, err, errs.ErrOutOfBounds)
	require.Equal(t, 0, r.Offset())

	// The short read did not consume anything; narrower reads still work.
	v, err := r.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0102), v)

	_, err = r.ReadUint8()
	require.ErrorIs(t, err, errs.ErrOutOfBounds)
	require.Equal(t, 2, r.Offset())
}

func TestReaderErrorCarriesOffset(t *testing.T) {
	r := NewReader(make([]byte, 5))
	require.NoError(t, r.Skip(5))

	_, err := r.ReadUint8()
	require.Equal(t, 5, errs.OffsetOf(err))
}

func TestReadBytesReturnsView(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5}
	r := NewReader(src)

	view, err := r.ReadBytes(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, view)
	require.Equal(t, 3, r.Offset())

	_, err = r.ReadBytes(3)
	require.ErrorIs(t, err, errs.ErrOutOfBounds)
	require.Equal(t, 3, r.Offset())
}

func TestReadUTF8Strict(t *testing.T) {
	r := NewReader([]byte{'h', 'i', 0xff, 0xfe})

	s, err := r.ReadUTF8(2, true)
	require.NoError(t, err)
	require.Equal(t, "hi", s)

	_, err = r.ReadUTF8(2, true)
	require.ErrorIs(t, err, errs.ErrInvalidUTF8)
	require.Equal(t, 2, r.Offset())

	// Lenient mode accepts the same bytes.
	s, err = r.ReadUTF8(2, false)
	require.NoError(t, err)
	require.Equal(t, "\xff\xfe", s)
}

func TestReadUTF8RejectsSurrogatesAndOverlong(t *testing.T) {
	cases := map[string][]byte{
		"surrogate half":   {0xed, 0xa0, 0x80},
		"overlong slash":   {0xc0, 0xaf},
		"beyond U+10FFFF":  {0xf4, 0x90, 0x80, 0x80},
		"truncated 3-byte": {0xe2, 0x82},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewReader(raw)
			_, err := r.ReadUTF8(len(raw), true)
			require.ErrorIs(t, err, errs.ErrInvalidUTF8)
		})
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter()
	defer w.Close()

	w.AppendUint8(0x01)
	w.AppendUint16(0x0203)
	w.AppendUint32(0x04050607)
	w.AppendUint64(0x08090a0b0c0d0e0f)
	w.AppendFloat64(1.5)
	w.AppendBytes([]byte{0xaa})
	w.AppendString("xyz")

	r := NewReader(w.Bytes())
	u8, _ := r.ReadUint8()
	require.Equal(t, uint8(0x01), u8)
	u16, _ := r.ReadUint16()
	require.Equal(t, uint16(0x0203), u16)
	u32, _ := r.ReadUint32()
	require.Equal(t, uint32(0x04050607), u32)
	u64, _ := r.ReadUint64()
	require.Equal(t, uint64(0x08090a0b0c0d0e0f), u64)
	f, _ := r.ReadFloat64()
	require.Equal(t, 1.5, f)
	rest, _ := r.ReadBytes(4)
	require.Equal(t, []byte{0xaa, 'x', 'y', 'z'}, rest)
}

func TestWriterDetachOwnsBytes(t *testing.T) {
	w := NewWriter()
	w.AppendString("abc")

	out := w.Detach()
	w.AppendString("def")
	w.Close()

	require.Equal(t, []byte("abc"), out)
}
