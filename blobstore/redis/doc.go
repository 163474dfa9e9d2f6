// Package redis provides a BlobStore backed by Redis string values.
//
// Each blob is one key (root prefix + blob name). Reads of a byte range use
// GETRANGE, so only the requested part of a tile crosses the network. The store
// suits small and medium tile sets that are shared between several query
// servers; values are limited to 512MB by Redis.
package redis
