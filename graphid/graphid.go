// Package graphid identifies tiles and objects inside tiles of a tiled routing graph.
//
// A GraphID packs three fields into the low 46 bits of a uint64:
//
//	bits  0..2   hierarchy level   (0..7)
//	bits  3..24  tile index        (0..4194303)
//	bits 25..45  object id in tile (0..2097151)
//
// The tile handle of any GraphID is its (level, tile index) pair, see TileID.
package graphid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	levelBits = 3
	tileBits  = 22
	idBits    = 21

	// MaxLevel is the largest encodable hierarchy level.
	MaxLevel = 1<<levelBits - 1
	// MaxTileIndex is the largest encodable tile index.
	MaxTileIndex = 1<<tileBits - 1
	// MaxID is the largest encodable object id within a tile.
	MaxID = 1<<idBits - 1
)

// Invalid is the sentinel for "no graph object".
const Invalid GraphID = 0x3fffffffffff

// ErrOutOfRange is returned when a field does not fit its bit width.
var ErrOutOfRange = errors.New("graphid: field out of range")

// GraphID identifies a node or edge within a tiled graph.
type GraphID uint64

// New packs level, tile index and id into a GraphID.
func New(level uint8, tile uint32, id uint32) (GraphID, error) {
	if level > MaxLevel {
		return Invalid, fmt.Errorf("%w: level %d", ErrOutOfRange, level)
	}
	if tile > MaxTileIndex {
		return Invalid, fmt.Errorf("%w: tile index %d", ErrOutOfRange, tile)
	}
	if id > MaxID {
		return Invalid, fmt.Errorf("%w: id %d", ErrOutOfRange, id)
	}
	return GraphID(uint64(level) | uint64(tile)<<levelBits | uint64(id)<<(levelBits+tileBits)), nil
}

// MustNew is like New but panics on out-of-range fields. Intended for tests and literals.
func MustNew(level uint8, tile uint32, id uint32) GraphID {
	g, err := New(level, tile, id)
	if err != nil {
		panic(err)
	}
	return g
}

// Level returns the hierarchy level.
func (g GraphID) Level() uint8 {
	return uint8(g & MaxLevel)
}

// TileIndex returns the tile index within the level.
func (g GraphID) TileIndex() uint32 {
	return uint32((g >> levelBits) & MaxTileIndex)
}

// ID returns the object id within the tile.
func (g GraphID) ID() uint32 {
	return uint32((g >> (levelBits + tileBits)) & MaxID)
}

// Tile returns the tile handle this object lives in.
func (g GraphID) Tile() TileID {
	return TileID{Level: g.Level(), Index: g.TileIndex()}
}

// Valid reports whether g is not the Invalid sentinel.
func (g GraphID) Valid() bool {
	return g != Invalid
}

// String formats g as "level/tile/id".
func (g GraphID) String() string {
	if !g.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%d/%d/%d", g.Level(), g.TileIndex(), g.ID())
}

// Parse parses the "level/tile/id" form produced by String.
func Parse(s string) (GraphID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Invalid, fmt.Errorf("graphid: malformed %q", s)
	}

	level, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return Invalid, fmt.Errorf("graphid: level: %w", err)
	}
	tile, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Invalid, fmt.Errorf("graphid: tile: %w", err)
	}
	id, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return Invalid, fmt.Errorf("graphid: id: %w", err)
	}

	return New(uint8(level), uint32(tile), uint32(id))
}

// TileID is a tile handle: a hierarchy level and a tile index within it.
type TileID struct {
	Level uint8
	Index uint32
}

// Base returns the GraphID of object 0 in the tile.
func (t TileID) Base() (GraphID, error) {
	return New(t.Level, t.Index, 0)
}

// String formats t as "level/tile".
func (t TileID) String() string {
	return fmt.Sprintf("%d/%d", t.Level, t.Index)
}
