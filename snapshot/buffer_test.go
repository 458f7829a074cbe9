package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteBufferGetAndOrder(t *testing.T) {
	b := NewWriteBuffer()
	b.Put([]byte("b"), []byte("2"))
	b.Put([]byte("a"), []byte("1"))
	b.Delete([]byte("c"))

	v, deleted, found := b.Get([]byte("a"))
	require.True(t, found)
	require.False(t, deleted)
	require.Equal(t, []byte("1"), v)

	_, deleted, found = b.Get([]byte("c"))
	require.True(t, found)
	require.True(t, deleted)

	_, _, found = b.Get([]byte("missing"))
	require.False(t, found)

	var order []string
	b.Range(nil, nil, func(key, value []byte, deleted bool) bool {
		order = append(order, string(key))
		return true
	})
	require.Equal(t, []string{"a", "b", "c"}, order)
	require.Equal(t, 3, b.Len())
}
