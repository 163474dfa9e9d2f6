package hierarchy

import (
	"fmt"
	"slices"

	"github.com/paulmach/orb"

	"github.com/hupe1980/tileconn/graphid"
)

// Level is one layer of the tiled network.
type Level struct {
	ID   uint8
	Name string
	Grid *Grid
}

// Hierarchy is the fixed set of levels of one tiled graph: ordered ordinary levels
// plus an optional distinguished transit level.
type Hierarchy struct {
	levels  []Level
	transit *Level
	byID    [graphid.MaxLevel + 1]*Level
}

// World is the bounding box of the default tiling.
var World = orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}

// New creates a hierarchy from ordinary levels and an optional transit level.
// Level ids must be unique and fit the graph id level field.
func New(levels []Level, transit *Level) (*Hierarchy, error) {
	h := &Hierarchy{levels: slices.Clone(levels)}
	slices.SortFunc(h.levels, func(a, b Level) int { return int(a.ID) - int(b.ID) })

	for i := range h.levels {
		if err := h.register(&h.levels[i]); err != nil {
			return nil, err
		}
	}
	if transit != nil {
		t := *transit
		h.transit = &t
		if err := h.register(h.transit); err != nil {
			return nil, err
		}
	}
	if len(h.levels) == 0 && h.transit == nil {
		return nil, fmt.Errorf("%w: no levels", ErrInvalidHierarchy)
	}
	return h, nil
}

func (h *Hierarchy) register(l *Level) error {
	if l.ID > graphid.MaxLevel {
		return fmt.Errorf("%w: level %d exceeds %d", ErrInvalidHierarchy, l.ID, graphid.MaxLevel)
	}
	if l.Grid == nil {
		return fmt.Errorf("%w: level %d has no grid", ErrInvalidHierarchy, l.ID)
	}
	if uint64(l.Grid.TileCount()) > uint64(graphid.MaxTileIndex)+1 {
		return fmt.Errorf("%w: level %d has %d tiles", ErrInvalidHierarchy, l.ID, l.Grid.TileCount())
	}
	if h.byID[l.ID] != nil {
		return fmt.Errorf("%w: duplicate level %d", ErrInvalidHierarchy, l.ID)
	}
	h.byID[l.ID] = l
	return nil
}

// Default returns the standard road hierarchy: highway (4°), arterial (1°) and
// local (0.25°) levels over the whole world, with a transit level at 0.25°.
func Default() *Hierarchy {
	grid := func(size float64) *Grid {
		g, err := NewGrid(World, size)
		if err != nil {
			panic(err)
		}
		return g
	}

	h, err := New([]Level{
		{ID: 0, Name: "highway", Grid: grid(4)},
		{ID: 1, Name: "arterial", Grid: grid(1)},
		{ID: 2, Name: "local", Grid: grid(0.25)},
	}, &Level{ID: 3, Name: "transit", Grid: grid(0.25)})
	if err != nil {
		panic(err)
	}
	return h
}

// Levels returns the ordinary levels in ascending id order.
func (h *Hierarchy) Levels() []Level { return slices.Clone(h.levels) }

// TransitLevel returns the transit level, if any.
func (h *Hierarchy) TransitLevel() (Level, bool) {
	if h.transit == nil {
		return Level{}, false
	}
	return *h.transit, true
}

// All returns the ordinary levels followed by the transit level.
func (h *Hierarchy) All() []Level {
	out := slices.Clone(h.levels)
	if h.transit != nil {
		out = append(out, *h.transit)
	}
	return out
}

// Level returns the level with the given id.
func (h *Hierarchy) Level(id uint8) (Level, bool) {
	if int(id) >= len(h.byID) || h.byID[id] == nil {
		return Level{}, false
	}
	return *h.byID[id], true
}

// IsTransit reports whether id is the transit level.
func (h *Hierarchy) IsTransit(id uint8) bool {
	return h.transit != nil && h.transit.ID == id
}

// MaxLevel returns the largest defined level id.
func (h *Hierarchy) MaxLevel() uint8 {
	var m uint8
	for _, l := range h.All() {
		m = max(m, l.ID)
	}
	return m
}

// TileID returns the tile of the given level containing p.
func (h *Hierarchy) TileID(level uint8, p orb.Point) (graphid.TileID, bool) {
	l, ok := h.Level(level)
	if !ok {
		return graphid.TileID{}, false
	}
	idx, ok := l.Grid.TileIndex(p)
	if !ok {
		return graphid.TileID{}, false
	}
	return graphid.TileID{Level: level, Index: idx}, true
}

// Contains reports whether t names a tile of a defined level.
func (h *Hierarchy) Contains(t graphid.TileID) bool {
	l, ok := h.Level(t.Level)
	return ok && l.Grid.Contains(t.Index)
}

// Translate maps t onto the tile of level to that covers the center of t.
func (h *Hierarchy) Translate(t graphid.TileID, to uint8) (graphid.TileID, bool) {
	from, ok := h.Level(t.Level)
	if !ok || !from.Grid.Contains(t.Index) {
		return graphid.TileID{}, false
	}
	if t.Level == to {
		return t, true
	}
	return h.TileID(to, from.Grid.Center(t.Index))
}
