package colorstore

import (
	"errors"
	"fmt"
	"slices"

	"github.com/bits-and-blooms/bitset"
)

// Color labels one connected region of a level.
type Color uint32

// ErrInvalidLevel is returned when level data does not form a dense coloring.
var ErrInvalidLevel = errors.New("colorstore: invalid level")

// Level is the coloring of all tiles of one hierarchy level.
type Level struct {
	id       uint8
	colors   []Color
	sizes    []uint32
	readable *bitset.BitSet
}

// NewLevel creates a level from a dense color array indexed by tile index.
// Colors must be dense: every value in [0, max] is used by at least one tile.
// readable marks tiles that had data; nil means none did. NewLevel takes
// ownership of both arguments.
func NewLevel(id uint8, colors []Color, readable *bitset.BitSet) (*Level, error) {
	var sizes []uint32
	for i, c := range colors {
		if int(c) >= len(colors) {
			return nil, fmt.Errorf("%w: tile %d has color %d with only %d tiles", ErrInvalidLevel, i, c, len(colors))
		}
		for int(c) >= len(sizes) {
			sizes = append(sizes, 0)
		}
		sizes[c]++
	}
	for c, n := range sizes {
		if n == 0 {
			return nil, fmt.Errorf("%w: color %d is unused", ErrInvalidLevel, c)
		}
	}

	if readable == nil {
		readable = bitset.New(uint(len(colors)))
	}
	if l := readable.Len(); l > uint(len(colors)) {
		if last, ok := readable.NextSet(uint(len(colors))); ok {
			return nil, fmt.Errorf("%w: readable tile %d beyond %d tiles", ErrInvalidLevel, last, len(colors))
		}
	}

	return &Level{id: id, colors: colors, sizes: sizes, readable: readable}, nil
}

// ID returns the hierarchy level id.
func (l *Level) ID() uint8 { return l.id }

// TileCount returns the number of tiles.
func (l *Level) TileCount() int { return len(l.colors) }

// NumColors returns the number of distinct regions.
func (l *Level) NumColors() int { return len(l.sizes) }

// Color returns the color of a tile. ok is false for an index outside the level.
func (l *Level) Color(index uint32) (c Color, ok bool) {
	if uint64(index) >= uint64(len(l.colors)) {
		return 0, false
	}
	return l.colors[index], true
}

// Colors returns a copy of the dense color array.
func (l *Level) Colors() []Color { return slices.Clone(l.colors) }

// RegionSize returns the number of tiles with color c (0 for unknown colors).
func (l *Level) RegionSize(c Color) int {
	if int(c) >= len(l.sizes) {
		return 0
	}
	return int(l.sizes[c])
}

// Tiles returns the tile indices of color c in ascending order.
func (l *Level) Tiles(c Color) []uint32 {
	n := l.RegionSize(c)
	if n == 0 {
		return nil
	}
	out := make([]uint32, 0, n)
	for i, col := range l.colors {
		if col == c {
			out = append(out, uint32(i))
		}
	}
	return out
}

// Readable reports whether a tile had readable data when the level was built.
func (l *Level) Readable(index uint32) bool {
	return l.readable.Test(uint(index))
}

// ReadableCount returns the number of tiles that had readable data.
func (l *Level) ReadableCount() int {
	return int(l.readable.Count())
}

// MemoryUsage estimates the bytes held by the level.
func (l *Level) MemoryUsage() int64 {
	return int64(len(l.colors))*4 + int64(len(l.sizes))*4 + int64(l.readable.BinaryStorageSize())
}

// Partition returns the regions of the level as sorted tile index groups, the
// groups ordered by their smallest tile. Two builds of the same network have
// equal partitions even when their colors differ.
func (l *Level) Partition() [][]uint32 {
	// Colors are assigned in first-encounter order, but levels decoded from
	// foreign data need not be; remap by first occurrence.
	order := make([]int, len(l.sizes))
	for i := range order {
		order[i] = -1
	}
	groups := make([][]uint32, 0, len(l.sizes))
	for i, c := range l.colors {
		if order[c] < 0 {
			order[c] = len(groups)
			groups = append(groups, make([]uint32, 0, l.sizes[c]))
		}
		groups[order[c]] = append(groups[order[c]], uint32(i))
	}
	return groups
}

// SamePartition reports whether l and o group their tiles identically.
func (l *Level) SamePartition(o *Level) bool {
	if l == nil || o == nil {
		return false
	}
	if len(l.colors) != len(o.colors) || len(l.sizes) != len(o.sizes) {
		return false
	}

	// The color maps must form a bijection.
	const unset = ^Color(0)
	fwd := make([]Color, len(l.sizes))
	rev := make([]Color, len(o.sizes))
	for i := range fwd {
		fwd[i] = unset
		rev[i] = unset
	}
	for i, a := range l.colors {
		b := o.colors[i]
		switch {
		case fwd[a] == unset && rev[b] == unset:
			fwd[a], rev[b] = b, a
		case fwd[a] != b || rev[b] != a:
			return false
		}
	}
	return true
}
