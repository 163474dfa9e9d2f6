// Package hash provides the checksum used for tile blobs and color snapshots.
//
// All persisted bytes are protected with CRC32-Castagnoli (CRC32C). Tile
// headers store the checksum of their payload; snapshots carry it as a
// trailer:
//
//	data := hash.AppendCRC32C(encoded)
//	payload, ok := hash.SplitCRC32C(data)
package hash
