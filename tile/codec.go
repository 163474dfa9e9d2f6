package tile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/internal/compress"
	"github.com/hupe1980/tileconn/internal/hash"
)

var (
	// ErrCorrupt is returned when tile bytes are structurally invalid.
	ErrCorrupt = errors.New("tile: corrupt")
	// ErrChecksum is returned when the payload checksum does not match.
	ErrChecksum = errors.New("tile: checksum mismatch")
	// ErrVersion is returned for an unsupported format version.
	ErrVersion = errors.New("tile: unsupported version")
)

// Compression selects the payload compression of an encoded tile.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	return compress.ParseType(s)
}

// Version is the current format version.
const Version uint16 = 1

const (
	headerSize  = 32
	nodeSize    = 24
	edgeSize    = 16
	maxStopName = math.MaxUint16
)

var magic = [4]byte{'T', 'C', 'G', 'T'}

// Encode serializes t, compressing the payload with c.
func Encode(t *Tile, c Compression) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("tile: unknown compression %s", c)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	size := len(t.Nodes)*nodeSize + len(t.Edges)*edgeSize
	for _, s := range t.Stops {
		size += 6 + len(s.Name)
	}

	raw := make([]byte, 0, size)
	for _, n := range t.Nodes {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(n.Point.X()))
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(n.Point.Y()))
		raw = binary.LittleEndian.AppendUint32(raw, n.EdgeIndex)
		raw = binary.LittleEndian.AppendUint32(raw, n.EdgeCount)
	}
	for _, e := range t.Edges {
		raw = binary.LittleEndian.AppendUint64(raw, uint64(e.EndNode))
		raw = append(raw, byte(e.Use), 0, 0, 0)
		raw = binary.LittleEndian.AppendUint32(raw, e.Length)
	}
	for _, s := range t.Stops {
		raw = binary.LittleEndian.AppendUint32(raw, s.Node)
		raw = binary.LittleEndian.AppendUint16(raw, uint16(len(s.Name)))
		raw = append(raw, s.Name...)
	}

	payload, err := compress.Compress(raw, c)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(payload))
	copy(out[0:4], magic[:])
	binary.LittleEndian.PutUint16(out[4:], Version)
	out[6] = byte(c)
	out[7] = t.ID.Level
	binary.LittleEndian.PutUint32(out[8:], t.ID.Index)
	binary.LittleEndian.PutUint32(out[12:], uint32(len(t.Nodes)))
	binary.LittleEndian.PutUint32(out[16:], uint32(len(t.Edges)))
	binary.LittleEndian.PutUint32(out[20:], uint32(len(t.Stops)))
	binary.LittleEndian.PutUint32(out[24:], hash.CRC32C(payload))
	return append(out, payload...), nil
}

// Header is the fixed-size prefix of an encoded tile.
type Header struct {
	Version     uint16
	Compression compress.Type
	ID          graphid.TileID
	Nodes       uint32
	Edges       uint32
	Stops       uint32
	Checksum    uint32
}

// ReadHeader decodes the header of an encoded tile.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < headerSize {
		return Header{}, fmt.Errorf("%w: %d bytes is smaller than the header", ErrCorrupt, len(data))
	}
	if [4]byte(data[0:4]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[0:4])
	}

	h := Header{
		Version:     binary.LittleEndian.Uint16(data[4:]),
		Compression: compress.Type(data[6]),
		ID: graphid.TileID{
			Level: data[7],
			Index: binary.LittleEndian.Uint32(data[8:]),
		},
		Nodes:    binary.LittleEndian.Uint32(data[12:]),
		Edges:    binary.LittleEndian.Uint32(data[16:]),
		Stops:    binary.LittleEndian.Uint32(data[20:]),
		Checksum: binary.LittleEndian.Uint32(data[24:]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if !h.Compression.Valid() {
		return Header{}, fmt.Errorf("%w: compression %d", ErrCorrupt, data[6])
	}
	return h, nil
}

// Decode parses an encoded tile and verifies its checksum.
func Decode(data []byte) (*Tile, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	payload := data[headerSize:]
	if got := hash.CRC32C(payload); got != h.Checksum {
		return nil, fmt.Errorf("%w: tile %s: got %08x, want %08x", ErrChecksum, h.ID, got, h.Checksum)
	}

	raw, _, err := compress.Decompress(payload, h.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	fixed := uint64(h.Nodes)*nodeSize + uint64(h.Edges)*edgeSize
	if uint64(len(raw)) < fixed {
		return nil, fmt.Errorf("%w: payload of %d bytes holds fewer than %d nodes and %d edges",
			ErrCorrupt, len(raw), h.Nodes, h.Edges)
	}

	t := &Tile{
		ID:    h.ID,
		Nodes: make([]Node, h.Nodes),
		Edges: make([]DirectedEdge, h.Edges),
	}

	off := 0
	for i := range t.Nodes {
		t.Nodes[i] = Node{
			Point: orb.Point{
				math.Float64frombits(binary.LittleEndian.Uint64(raw[off:])),
				math.Float64frombits(binary.LittleEndian.Uint64(raw[off+8:])),
			},
			EdgeIndex: binary.LittleEndian.Uint32(raw[off+16:]),
			EdgeCount: binary.LittleEndian.Uint32(raw[off+20:]),
		}
		off += nodeSize
	}
	for i := range t.Edges {
		t.Edges[i] = DirectedEdge{
			EndNode: graphid.GraphID(binary.LittleEndian.Uint64(raw[off:])),
			Use:     Use(raw[off+8]),
			Length:  binary.LittleEndian.Uint32(raw[off+12:]),
		}
		off += edgeSize
	}

	if h.Stops > 0 {
		t.Stops = make([]TransitStop, 0, min(int(h.Stops), (len(raw)-off)/6))
	}
	for i := uint32(0); i < h.Stops; i++ {
		if len(raw)-off < 6 {
			return nil, fmt.Errorf("%w: stop %d truncated", ErrCorrupt, i)
		}
		node := binary.LittleEndian.Uint32(raw[off:])
		n := int(binary.LittleEndian.Uint16(raw[off+4:]))
		off += 6
		if len(raw)-off < n {
			return nil, fmt.Errorf("%w: stop %d name truncated", ErrCorrupt, i)
		}
		t.Stops = append(t.Stops, TransitStop{Node: node, Name: string(raw[off : off+n])})
		off += n
	}
	if off != len(raw) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(raw)-off)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
