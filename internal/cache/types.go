package cache

import "context"

// Key identifies one block of one blob.
type Key struct {
	// Blob is the blob name inside its store.
	Blob string
	// Block is the block index (byte offset / block size).
	Block int64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a block. The caller must not modify b afterwards.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes every cached block of the named blob.
	Invalidate(blob string)
	// Stats returns cache statistics.
	Stats() (hits, misses int64)
}
