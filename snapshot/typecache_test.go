package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/typeql-engine/concept"
)

func TestTypeCacheGetPut(t *testing.T) {
	c := NewTypeCache(2)
	schema := concept.NewSchema()

	_, ok := c.Get(1)
	require.False(t, ok)

	c.Put(1, schema)
	got, ok := c.Get(1)
	require.True(t, ok)
	require.Same(t, schema, got)
}

func TestTypeCacheEvictsOldestWhenFull(t *testing.T) {
	c := NewTypeCache(2)
	c.Put(1, concept.NewSchema())
	c.Put(2, concept.NewSchema())
	c.Put(3, concept.NewSchema())

	_, ok := c.Get(1)
	require.False(t, ok, "oldest entry must be evicted once over capacity")
	_, ok = c.Get(2)
	require.True(t, ok)
	_, ok = c.Get(3)
	require.True(t, ok)
}

func TestTypeCacheStats(t *testing.T) {
	c := NewTypeCache(4)
	c.Put(1, concept.NewSchema())
	c.Get(1)
	c.Get(99)

	hits, misses, size := c.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(1), misses)
	require.Equal(t, 1, size)
}
