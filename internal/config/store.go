package config

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/blobstore/minio"
	"github.com/hupe1980/tileconn/blobstore/redis"
	"github.com/hupe1980/tileconn/blobstore/s3"
	"github.com/hupe1980/tileconn/internal/cache"
	"github.com/hupe1980/tileconn/resource"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the configured backend. Remote backends are wrapped in a
// block cache when cc has a capacity. The returned closer releases backend
// connections.
func OpenStore(ctx context.Context, sc StoreConfig, cc CacheConfig, rc *resource.Controller) (blobstore.BlobStore, io.Closer, error) {
	var (
		store  blobstore.BlobStore
		closer io.Closer = nopCloser{}
		remote = true
	)

	switch sc.Backend {
	case "local":
		store, remote = blobstore.NewLocalStore(sc.Path), false
	case "memory":
		store, remote = blobstore.NewMemoryStore(), false
	case "s3":
		s, err := s3.Dial(ctx, s3.Options{
			Bucket:      sc.Bucket,
			Prefix:      sc.Prefix,
			Region:      sc.Region,
			Endpoint:    sc.Endpoint,
			CommitTable: sc.CommitTable,
		})
		if err != nil {
			return nil, nil, err
		}
		store = s
	case "minio":
		s, err := minio.Dial(ctx, minio.Options{
			Endpoint:     sc.Endpoint,
			AccessKey:    sc.AccessKey,
			SecretKey:    sc.SecretKey,
			Region:       sc.Region,
			Secure:       sc.Secure,
			Bucket:       sc.Bucket,
			Prefix:       sc.Prefix,
			CreateBucket: true,
		})
		if err != nil {
			return nil, nil, err
		}
		store = s
	case "redis":
		s, err := redis.Dial(ctx, redis.Options{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
			Prefix:   sc.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		store, closer = s, s
	default:
		return nil, nil, fmt.Errorf("%w: unknown backend %q", ErrInvalid, sc.Backend)
	}

	if remote && cc.CapacityBytes > 0 {
		store = blobstore.NewCachingStore(store, cache.NewLRUBlockCache(cc.CapacityBytes, rc), cc.BlockSize)
	}
	return store, closer, nil
}

// ResourceController returns the controller for the build limits.
func (b BuildConfig) ResourceController() *resource.Controller {
	return resource.NewController(resource.Config{
		MemoryLimitBytes:    b.MemoryLimitBytes,
		MaxConcurrentBuilds: b.MaxConcurrentBuilds,
		IOLimitBytesPerSec:  b.IOLimitBytesPerSec,
	})
}
