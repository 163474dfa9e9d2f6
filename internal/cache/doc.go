// Package cache provides an in-memory LRU cache for blob blocks.
//
// Remote tile stores (S3, MinIO, Redis) are read through blobstore.CachingStore,
// which splits reads into fixed-size blocks and keeps recently used blocks here.
// Rebuilding a level shortly after a previous build then hits RAM instead of the
// network. Memory held by the cache can be accounted against a resource.Controller.
package cache
