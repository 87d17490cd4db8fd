// Package buffer provides the bounds-checked byte buffer the BTOON codec
// and validator read the wire through, plus the append-only writer the
// encoder emits into.
//
// Reader is also a public API for callers building their own parsers on top
// of BTOON payloads. Its contract: every read either returns the requested
// bytes or fails with OutOfBounds and leaves the cursor unchanged.
package buffer

import (
	"math"
	"unicode/utf8"

	"github.com/BTOON-project/btoon-core/endian"
	"github.com/BTOON-project/btoon-core/errs"
)

var wire = endian.GetBigEndianEngine()

// Reader is a sequential cursor over an in-memory byte sequence.
// All multi-byte reads are big-endian. Reader never reads past the declared
// length; each read checks remaining bytes against the requested width
// before advancing.
//
// Reader does not copy its input. Sub-views returned by ReadBytes alias the
// source; callers materializing values across a public boundary must copy.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data. The Reader borrows data; the caller
// must not mutate it while the Reader is in use.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total length of the underlying data.
func (r *Reader) Len() int {
	return len(r.data)
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// need fails with a positioned OutOfBounds error when fewer than n bytes
// remain. The cursor is not moved.
func (r *Reader) need(n int) error {
	if n < 0 || len(r.data)-r.pos < n {
		return errs.Newf(errs.KindOutOfBounds, r.pos, "need %d bytes, %d remain", n, len(r.data)-r.pos)
	}

	return nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++

	return v, nil
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := wire.Uint16(r.data[r.pos:])
	r.pos += 2

	return v, nil
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := wire.Uint32(r.data[r.pos:])
	r.pos += 4

	return v, nil
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := wire.Uint64(r.data[r.pos:])
	r.pos += 8

	return v, nil
}

// ReadInt8 reads one byte as a signed integer.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadInt16 reads a big-endian int16.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads a big-endian int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a big-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a big-endian IEEE-754 single.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads a big-endian IEEE-754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBytes reads n bytes and returns them as a sub-view of the underlying
// data. The view is valid as long as the source buffer is; it is the
// caller's responsibility to copy before crossing an ownership boundary.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n

	return v, nil
}

// ReadUTF8 reads n bytes as a string. When strict is true the bytes must
// form valid UTF-8 (no overlong encodings, no surrogates, no code points
// above U+10FFFF); otherwise the read fails with InvalidUtf8 and the cursor
// stays at the start of the payload.
func (r *Reader) ReadUTF8(n int, strict bool) (string, error) {
	if err := r.need(n); err != nil {
		return "", err
	}
	raw := r.data[r.pos : r.pos+n]
	if strict && !utf8.Valid(raw) {
		return "", errs.New(errs.KindInvalidUTF8, r.pos, "string payload is not valid UTF-8")
	}
	r.pos += n

	return string(raw), nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n

	return nil
}

// PeekUint8 returns the next byte without advancing.
func (r *Reader) PeekUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}

	return r.data[r.pos], nil
}
