// Package compress frames byte blocks with optional LZ4 or ZSTD compression.
//
// A framed block is [uncompressed uint32][compressed uint32][data...], little
// endian. A compressed size of 0 means the data is stored as is, which also
// happens when compression does not shrink the input by at least 10%.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type selects the compression algorithm.
type Type uint8

const (
	// None stores blocks uncompressed.
	None Type = 0
	// LZ4 is fast block compression, suited to hot tiles.
	LZ4 Type = 1
	// ZSTD trades speed for ratio.
	ZSTD Type = 2
)

// HeaderSize is the size of the block frame header.
const HeaderSize = 8

// MaxBlockSize bounds the uncompressed size of a block.
const MaxBlockSize = 1 << 28

// Upper bounds on the expansion of a compressed payload, used to reject
// headers that claim more output than the payload can hold.
const (
	maxLZ4Ratio  = 255
	maxZSTDRatio = 1 << 15
)

// ErrCorrupt is returned when a framed block cannot be decoded.
var ErrCorrupt = errors.New("compress: corrupt block")

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(t))
	}
}

// Valid reports whether t is a known algorithm.
func (t Type) Valid() bool { return t <= ZSTD }

// ParseType parses a compression name ("none", "lz4", "zstd").
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("compress: unknown type %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxBlockSize))
	return dec
}

// Compress returns data framed as a block, compressed with t when that pays off.
func Compress(data []byte, t Type) ([]byte, error) {
	if len(data) > MaxBlockSize {
		return nil, fmt.Errorf("compress: block of %d bytes too large", len(data))
	}

	var packed []byte
	switch t {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown type %d", t)
	}

	// Not worth it below a 10% saving.
	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*0.9 {
		out := make([]byte, HeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[HeaderSize:], data)
		return out, nil
	}

	out := make([]byte, HeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	copy(out[HeaderSize:], packed)
	return out, nil
}

// Decompress decodes a block produced by Compress with the same type.
// It returns the decoded bytes and the number of input bytes consumed.
func Decompress(block []byte, t Type) ([]byte, int, error) {
	if len(block) < HeaderSize {
		return nil, 0, fmt.Errorf("%w: %d bytes is smaller than the header", ErrCorrupt, len(block))
	}

	rawSize := uint64(binary.LittleEndian.Uint32(block[0:]))
	packedSize := uint64(binary.LittleEndian.Uint32(block[4:]))

	if packedSize == 0 {
		end := HeaderSize + rawSize
		if uint64(len(block)) < end {
			return nil, 0, fmt.Errorf("%w: stored block truncated", ErrCorrupt)
		}
		return block[HeaderSize:end], int(end), nil
	}

	end := HeaderSize + packedSize
	if uint64(len(block)) < end {
		return nil, 0, fmt.Errorf("%w: compressed block truncated", ErrCorrupt)
	}
	packed := block[HeaderSize:end]

	var ratio uint64
	switch t {
	case LZ4:
		ratio = maxLZ4Ratio
	case ZSTD:
		ratio = maxZSTDRatio
	default:
		return nil, 0, fmt.Errorf("%w: compressed payload with type %s", ErrCorrupt, t)
	}
	if rawSize > MaxBlockSize || rawSize > packedSize*ratio {
		return nil, 0, fmt.Errorf("%w: implausible size %d for %d compressed bytes", ErrCorrupt, rawSize, packedSize)
	}
	out := make([]byte, rawSize)

	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(packed, out)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint64(n) != rawSize {
			return nil, 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
	case ZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(packed, out[:0])
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint64(len(decoded)) != rawSize {
			return nil, 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		out = decoded
	}

	return out, int(end), nil
}
