package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Open(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	src := []byte("tile-bytes")
	require.NoError(t, store.Put(ctx, "1/000/001.gph", src))
	src[0] = 'X'

	got, err := Get(ctx, store, "1/000/001.gph")
	require.NoError(t, err)
	assert.Equal(t, "tile-bytes", string(got), "Put copies its input")

	w, err := store.Create(ctx, "1/000/002.gph")
	require.NoError(t, err)
	_, err = w.Write([]byte("streamed"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())

	_, err = store.Open(ctx, "1/000/002.gph")
	require.ErrorIs(t, err, ErrNotFound, "not visible before Close")
	require.NoError(t, w.Close())

	names, err := store.List(ctx, "1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"1/000/001.gph", "1/000/002.gph"}, names)
	assert.Equal(t, 2, store.Len())

	blob, err := store.Open(ctx, "1/000/002.gph")
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := blob.ReadAt(ctx, buf, 6)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, blob.Close())

	require.NoError(t, store.Delete(ctx, "1/000/001.gph"))
	assert.Equal(t, 1, store.Len())
}
