package buffer

import (
	"math"

	"github.com/BTOON-project/btoon-core/internal/pool"
)

// Writer is an append-only big-endian byte sink backed by a pooled buffer.
//
// A Writer is a per-call scratch pad: create one per encode operation,
// take the output with Detach, and release the backing storage with Close.
// Writer is not safe for concurrent use.
type Writer struct {
	buf *pool.ByteBuffer
}

// NewWriter creates a Writer backed by a pooled buffer.
func NewWriter() *Writer {
	return &Writer{buf: pool.GetPayloadBuffer()}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns the written bytes. The slice is only valid until the next
// append or Close; use Detach for an owned copy.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Detach returns an owned copy of the written bytes. The Writer remains
// usable afterwards.
func (w *Writer) Detach() []byte {
	return w.buf.CopyBytes()
}

// Close returns the backing buffer to the pool. The Writer must not be used
// afterwards. Safe to call multiple times.
func (w *Writer) Close() {
	if w.buf != nil {
		pool.PutPayloadBuffer(w.buf)
		w.buf = nil
	}
}

// Reset empties the Writer for reuse, keeping the backing storage.
func (w *Writer) Reset() {
	w.buf.Reset()
}

// Grow reserves capacity for at least n more bytes.
func (w *Writer) Grow(n int) {
	w.buf.Grow(n)
}

// AppendUint8 appends one byte.
func (w *Writer) AppendUint8(v uint8) {
	w.buf.B = append(w.buf.B, v)
}

// AppendUint16 appends a big-endian uint16.
func (w *Writer) AppendUint16(v uint16) {
	w.buf.B = wire.AppendUint16(w.buf.B, v)
}

// AppendUint32 appends a big-endian uint32.
func (w *Writer) AppendUint32(v uint32) {
	w.buf.B = wire.AppendUint32(w.buf.B, v)
}

// AppendUint64 appends a big-endian uint64.
func (w *Writer) AppendUint64(v uint64) {
	w.buf.B = wire.AppendUint64(w.buf.B, v)
}

// AppendInt8 appends one byte.
func (w *Writer) AppendInt8(v int8) {
	w.AppendUint8(uint8(v))
}

// AppendInt16 appends a big-endian int16.
func (w *Writer) AppendInt16(v int16) {
	w.AppendUint16(uint16(v))
}

// AppendInt32 appends a big-endian int32.
func (w *Writer) AppendInt32(v int32) {
	w.AppendUint32(uint32(v))
}

// AppendInt64 appends a big-endian int64.
func (w *Writer) AppendInt64(v int64) {
	w.AppendUint64(uint64(v))
}

// AppendFloat32 appends a big-endian IEEE-754 single.
func (w *Writer) AppendFloat32(v float32) {
	w.AppendUint32(math.Float32bits(v))
}

// AppendFloat64 appends a big-endian IEEE-754 double.
func (w *Writer) AppendFloat64(v float64) {
	w.AppendUint64(math.Float64bits(v))
}

// AppendBytes appends raw bytes.
func (w *Writer) AppendBytes(data []byte) {
	w.buf.MustWrite(data)
}

// AppendString appends the raw bytes of s.
func (w *Writer) AppendString(s string) {
	w.buf.B = append(w.buf.B, s...)
}
