// Package blobstore provides the storage abstraction tiles and snapshots live in.
//
// BlobStore is the interface for reading and writing immutable blobs (encoded graph
// tiles, color snapshots, the CURRENT snapshot pointer). Implementations must be
// safe for concurrent use and report missing blobs with an error satisfying
// errors.Is(err, ErrNotFound).
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap reads
//   - MemoryStore: in-process map, for tests and small synthetic graphs
//   - CachingStore: block cache in front of any slow store
//   - s3.Store, minio.Store, redis.Store: remote backends in sub-packages
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Blobs that can expose their bytes without copying (mmap, memory) also implement
// Mappable; ReadAll uses it when available.
package blobstore
