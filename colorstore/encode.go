package colorstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"

	"github.com/hupe1980/tileconn/codec"
	"github.com/hupe1980/tileconn/internal/compress"
	"github.com/hupe1980/tileconn/internal/conv"
	"github.com/hupe1980/tileconn/internal/hash"
)

// Snapshot encoding:
//
//	magic "TCSN" | version u16 | codec name len u8 | codec name
//	| meta len u32 | meta (codec encoded) | body (zstd frame) | crc32c u32
//
// The body holds, per level in meta order, the colors as little endian uint32
// followed by the readable bitset in its binary form.
const (
	snapshotMagic = "TCSN"

	// SnapshotVersion is the encoding version written by Encode.
	SnapshotVersion uint16 = 1
)

var (
	// ErrCorrupt is returned when snapshot data is truncated or malformed.
	ErrCorrupt = errors.New("colorstore: corrupt snapshot")
	// ErrChecksum is returned when the snapshot checksum does not match.
	ErrChecksum = errors.New("colorstore: checksum mismatch")
	// ErrVersion is returned for an unsupported snapshot version.
	ErrVersion = errors.New("colorstore: unsupported snapshot version")
)

type snapshotMeta struct {
	ID        uuid.UUID   `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Levels    []levelMeta `json:"levels"`
}

type levelMeta struct {
	Level         uint8 `json:"level"`
	Tiles         int   `json:"tiles"`
	Colors        int   `json:"colors"`
	ReadableBytes int   `json:"readable_bytes"`
}

// Encode serializes a snapshot. Metadata is encoded with c (codec.Default when
// nil) and the codec name is recorded so Decode can pick the same one.
func Encode(s *Snapshot, c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}

	meta := snapshotMeta{ID: s.id, CreatedAt: s.createdAt}
	var body []byte
	for _, l := range s.Levels() {
		rb, err := l.readable.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("colorstore: level %d readable set: %w", l.id, err)
		}
		meta.Levels = append(meta.Levels, levelMeta{
			Level:         l.id,
			Tiles:         len(l.colors),
			Colors:        len(l.sizes),
			ReadableBytes: len(rb),
		})
		for _, col := range l.colors {
			body = binary.LittleEndian.AppendUint32(body, uint32(col))
		}
		body = append(body, rb...)
	}

	mb, err := c.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("colorstore: encode meta: %w", err)
	}
	frame, err := compress.Compress(body, compress.ZSTD)
	if err != nil {
		return nil, fmt.Errorf("colorstore: compress body: %w", err)
	}

	name := c.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("colorstore: codec name too long: %q", name)
	}

	metaLen, err := conv.IntToUint32(len(mb))
	if err != nil {
		return nil, fmt.Errorf("colorstore: meta: %w", err)
	}

	out := make([]byte, 0, 4+2+1+len(name)+4+len(mb)+len(frame)+hash.TrailerSize)
	out = append(out, snapshotMagic...)
	out = binary.LittleEndian.AppendUint16(out, SnapshotVersion)
	out = append(out, byte(len(name)))
	out = append(out, name...)
	out = binary.LittleEndian.AppendUint32(out, metaLen)
	out = append(out, mb...)
	out = append(out, frame...)
	return hash.AppendCRC32C(out), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < 4+2+1+4+4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	if string(data[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	payload, ok := hash.SplitCRC32C(data)
	if !ok {
		return nil, ErrChecksum
	}
	if v := binary.LittleEndian.Uint16(payload[4:6]); v != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	off := 6
	nameLen := int(payload[off])
	off++
	if off+nameLen+4 > len(payload) {
		return nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	name := string(payload[off : off+nameLen])
	off += nameLen
	c, ok := codec.ByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, name)
	}

	metaLen, err := conv.Uint32ToInt(binary.LittleEndian.Uint32(payload[off:]))
	off += 4
	if err != nil || metaLen > len(payload)-off {
		return nil, fmt.Errorf("%w: truncated meta", ErrCorrupt)
	}
	var meta snapshotMeta
	if err := c.Unmarshal(payload[off:off+metaLen], &meta); err != nil {
		return nil, fmt.Errorf("%w: meta: %v", ErrCorrupt, err)
	}
	off += metaLen

	body, n, err := compress.Decompress(payload[off:], compress.ZSTD)
	if err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrCorrupt, err)
	}
	if off+n != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(payload)-off-n)
	}

	s := &Snapshot{id: meta.ID, createdAt: meta.CreatedAt}
	pos := 0
	for _, lm := range meta.Levels {
		if int(lm.Level) >= len(s.levels) || lm.Tiles < 0 || lm.ReadableBytes < 0 {
			return nil, fmt.Errorf("%w: bad level entry %+v", ErrCorrupt, lm)
		}
		if lm.Tiles > (len(body)-pos)/4 || lm.ReadableBytes > len(body)-pos-lm.Tiles*4 {
			return nil, fmt.Errorf("%w: level %d truncated", ErrCorrupt, lm.Level)
		}
		colors := make([]Color, lm.Tiles)
		for i := range colors {
			colors[i] = Color(binary.LittleEndian.Uint32(body[pos:]))
			pos += 4
		}
		readable := &bitset.BitSet{}
		if err := readable.UnmarshalBinary(body[pos : pos+lm.ReadableBytes]); err != nil {
			return nil, fmt.Errorf("%w: level %d readable set: %v", ErrCorrupt, lm.Level, err)
		}
		pos += lm.ReadableBytes

		l, err := NewLevel(lm.Level, colors, readable)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if l.NumColors() != lm.Colors {
			return nil, fmt.Errorf("%w: level %d has %d colors, header says %d", ErrCorrupt, lm.Level, l.NumColors(), lm.Colors)
		}
		s.levels[lm.Level] = l
	}
	if pos != len(body) {
		return nil, fmt.Errorf("%w: %d unused body bytes", ErrCorrupt, len(body)-pos)
	}
	return s, nil
}
