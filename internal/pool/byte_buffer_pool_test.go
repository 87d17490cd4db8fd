package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBufferWriteAndReset(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("hello"))
	require.Equal(t, 5, bb.Len())
	require.Equal(t, []byte("hello"), bb.Bytes())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 16)
}

func TestByteBufferGrow(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.MustWrite([]byte{1, 2})
	bb.Grow(100)
	require.GreaterOrEqual(t, bb.Cap()-bb.Len(), 100)
	require.Equal(t, []byte{1, 2}, bb.Bytes())
}

func TestCopyBytesOwnsStorage(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.MustWrite([]byte{1, 2, 3})

	out := bb.CopyBytes()
	bb.B[0] = 9
	require.Equal(t, []byte{1, 2, 3}, out)
}

func TestPayloadBufferPoolReuse(t *testing.T) {
	bb := GetPayloadBuffer()
	require.Equal(t, 0, bb.Len())
	bb.MustWrite(make([]byte, 64))
	PutPayloadBuffer(bb)

	again := GetPayloadBuffer()
	require.Equal(t, 0, again.Len())
	PutPayloadBuffer(again)
}

func TestOversizedBufferNotPooled(t *testing.T) {
	bb := NewByteBuffer(PayloadBufferMaxThreshold + 1)
	// Must not panic; the buffer is simply dropped.
	PutPayloadBuffer(bb)
	PutPayloadBuffer(nil)
}
