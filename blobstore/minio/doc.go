// Package minio provides a BlobStore backed by MinIO or any S3-compatible server.
//
// Tiles are stored as objects under a root prefix using their usual relative path
// (for example "tiles/2/000/415/000.gph"), so an existing tile directory can be
// mirrored with `mc mirror` and read unchanged.
//
// # Basic Usage
//
//	store, err := minioblob.Dial(ctx, minioblob.Options{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "graph",
//	    Prefix:    "tiles/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	m, err := tileconn.New(hierarchy.Default(), tilestore.NewReader(store))
//
// Reads are ranged GETs; wrap the store in blobstore.CachingStore when tiles are
// read repeatedly.
package minio
