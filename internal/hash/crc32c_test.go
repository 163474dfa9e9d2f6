package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C_KnownVector(t *testing.T) {
	// Standard check value for CRC-32C.
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))
}

func TestTrailer(t *testing.T) {
	data := AppendCRC32C([]byte("TCSN colors"))
	assert.Len(t, data, len("TCSN colors")+TrailerSize)

	payload, ok := SplitCRC32C(data)
	assert.True(t, ok)
	assert.Equal(t, []byte("TCSN colors"), payload)

	data[0] ^= 0xff
	_, ok = SplitCRC32C(data)
	assert.False(t, ok)

	_, ok = SplitCRC32C([]byte{1, 2})
	assert.False(t, ok)

	payload, ok = SplitCRC32C(AppendCRC32C(nil))
	assert.True(t, ok)
	assert.Empty(t, payload)
}
