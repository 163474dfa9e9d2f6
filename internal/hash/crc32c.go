package hash

import (
	"encoding/binary"
	"hash/crc32"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// TrailerSize is the size of the checksum appended by AppendCRC32C.
const TrailerSize = 4

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// AppendCRC32C appends the little endian checksum of b to b.
func AppendCRC32C(b []byte) []byte {
	return binary.LittleEndian.AppendUint32(b, CRC32C(b))
}

// SplitCRC32C splits data written by AppendCRC32C into its payload and
// reports whether the trailing checksum matches.
func SplitCRC32C(data []byte) ([]byte, bool) {
	if len(data) < TrailerSize {
		return nil, false
	}
	payload := data[:len(data)-TrailerSize]
	return payload, CRC32C(payload) == binary.LittleEndian.Uint32(data[len(payload):])
}
