package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tileconn/internal/cache"
)

type mockBlob struct {
	mu        sync.Mutex
	data      []byte
	reads     int
	readBytes int
}

func (m *mockBlob) Close() error { return nil }
func (m *mockBlob) Size() int64  { return int64(len(m.data)) }
func (m *mockBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	m.readBytes += n
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
func (m *mockBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data[off : off+length])), nil
}

type mockStore struct {
	MemoryStore
	blobs map[string]*mockBlob
}

func (m *mockStore) Open(_ context.Context, name string) (Blob, error) {
	if b, ok := m.blobs[name]; ok {
		return b, nil
	}
	return nil, ErrNotFound
}

func (m *mockStore) Put(_ context.Context, name string, data []byte) error {
	m.blobs[name] = &mockBlob{data: data}
	return nil
}

func TestCachingStore_ReadAt(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 255)
	}

	inner := &mockStore{blobs: map[string]*mockBlob{"test": {data: data}}}
	c := cache.NewLRUBlockCache(1024*1024, nil)
	store := NewCachingStore(inner, c, 256)
	ctx := context.Background()

	blob, err := store.Open(ctx, "test")
	require.NoError(t, err)

	buf := make([]byte, 100)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[:100], buf)

	m := inner.blobs["test"]
	assert.Equal(t, 1, m.reads)
	assert.Equal(t, 256, m.readBytes)

	// Same range again is a cache hit.
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, m.reads)

	// Spanning blocks 0 (cached) and 1 (missing).
	n, err = blob.ReadAt(ctx, buf, 200)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[200:300], buf)
	assert.Equal(t, 2, m.reads)
	assert.Equal(t, 512, m.readBytes)

	hits, misses := c.Stats()
	assert.Positive(t, hits)
	assert.Positive(t, misses)
}

func TestCachingStore_SmallFile(t *testing.T) {
	data := []byte("hello")
	inner := &mockStore{blobs: map[string]*mockBlob{"small": {data: data}}}
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), 256)
	ctx := context.Background()

	blob, err := store.Open(ctx, "small")
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := blob.ReadAt(ctx, buf, 0)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 5, n)
	assert.Equal(t, data, buf[:n])

	all, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, data, all)
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	c := cache.NewLRUBlockCache(1<<20, nil)
	store := NewCachingStore(inner, c, 4)

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("aaaaaaaa")))
	got, err := Get(ctx, store, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaa", string(got))
	assert.Positive(t, c.Len())

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("bbbbbbbb")))
	got, err = Get(ctx, store, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbb", string(got))

	require.NoError(t, store.Delete(ctx, "CURRENT"))
	assert.Zero(t, c.Len())
}

func TestCachingStore_ReadRange(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "blob", []byte("0123456789")))

	store := NewCachingStore(inner, cache.NewLRUBlockCache(1<<20, nil), 3)
	blob, err := store.Open(ctx, "blob")
	require.NoError(t, err)

	r, err := blob.ReadRange(ctx, 2, 6)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "234567", string(got))
}
