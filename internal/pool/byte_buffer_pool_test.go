package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer(t *testing.T) {
	bb := NewByteBuffer(4)
	n, err := bb.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.NoError(t, bb.WriteByte(4))
	require.NoError(t, bb.WriteByte(5))
	require.Equal(t, []byte{1, 2, 3, 4, 5}, bb.Bytes())
	require.Equal(t, 5, bb.Len())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
}

func TestByteBufferPool(t *testing.T) {
	p := NewByteBufferPool(8, 16)

	bb := p.Get()
	require.NotNil(t, bb)
	require.Equal(t, 0, bb.Len())
	_, _ = bb.Write([]byte("abc"))
	p.Put(bb)

	again := p.Get()
	require.Equal(t, 0, again.Len(), "pooled buffers come back empty")

	p.Put(nil)
	big := NewByteBuffer(64)
	p.Put(big) // dropped, larger than threshold
}

func TestSnapshotBuffer(t *testing.T) {
	bb := GetSnapshotBuffer()
	require.NotNil(t, bb)
	require.GreaterOrEqual(t, cap(bb.B), SnapshotBufferDefaultSize)
	PutSnapshotBuffer(bb)
}
