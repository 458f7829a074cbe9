package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenReadIsolation(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	readBefore, err := store.OpenRead(ctx)
	require.NoError(t, err)
	defer readBefore.Close()

	w, err := store.OpenWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Put([]byte("k1"), []byte("v1")))
	seq, err := w.Commit()
	require.NoError(t, err)
	require.Greater(t, uint64(seq), uint64(0))

	// readBefore was opened before the commit, so it must not observe it.
	v, err := readBefore.Get([]byte("k1"))
	require.NoError(t, err)
	require.Nil(t, v)

	readAfter, err := store.OpenRead(ctx)
	require.NoError(t, err)
	defer readAfter.Close()
	v, err = readAfter.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)
}

func TestAbortDiscardsWrites(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	w, err := store.OpenWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, w.Abort())

	r, err := store.OpenRead(ctx)
	require.NoError(t, err)
	defer r.Close()
	v, err := r.Get([]byte("k1"))
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestIteratePrefixRange(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	w, err := store.OpenWrite(ctx)
	require.NoError(t, err)
	for _, k := range []string{"a/1", "a/2", "a/3", "b/1"} {
		require.NoError(t, w.Put([]byte(k), []byte("v")))
	}
	_, err = w.Commit()
	require.NoError(t, err)

	r, err := store.OpenRead(ctx)
	require.NoError(t, err)
	defer r.Close()

	it := r.Iterate([]byte("a/"), []byte("a0"))
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())
	require.Equal(t, []string{"a/1", "a/2", "a/3"}, keys)
}

func TestSchemaSnapshotSerialisesAgainstConcurrentSchemaWriters(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	s1, err := store.OpenSchema(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s2, err := store.OpenSchema(ctx)
		require.NoError(t, err)
		_, err = s2.Commit()
		require.NoError(t, err)
		close(done)
	}()

	// s1 holds the exclusive schema lock until it commits/aborts.
	_, err = s1.Commit()
	require.NoError(t, err)
	<-done
}
