// Package s3 provides Amazon S3 implementations of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3blob.Dial(ctx, s3blob.Options{
//	    Bucket: "graph-tiles",
//	    Prefix: "planet/2024-06/",
//	    Region: "eu-central-1",
//	})
//
// Setting Options.CommitTable wraps the store in a DDBCommitStore, which keeps the
// CURRENT snapshot pointer in DynamoDB so that concurrent publishers cannot
// overwrite each other.
//
// # Features
//
//   - Range reads for tiles and partial snapshot fetches
//   - Multipart streaming uploads with CRC32C integrity checks
//   - Automatic pagination for listing tile directories
//   - Custom endpoints for S3-compatible services
package s3
