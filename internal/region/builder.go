package region

import (
	"context"
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/tileconn/colorstore"
	"github.com/hupe1980/tileconn/internal/unionfind"
)

// Builder accumulates adjacencies of one level into regions.
type Builder struct {
	forest  *unionfind.Forest
	ignored int
}

// NewBuilder creates a builder where each of the tiles starts as its own region.
func NewBuilder(tiles int) *Builder {
	return &Builder{forest: unionfind.New(tiles)}
}

// Add merges the regions joined by adj. Pairs naming tiles outside the level
// are skipped and counted.
func (b *Builder) Add(adj []Adjacency) {
	n := uint32(b.forest.Len())
	for _, a := range adj {
		if a.A >= n || a.B >= n {
			b.ignored++
			continue
		}
		b.forest.Union(a.A, a.B)
	}
}

// Regions returns the current number of regions.
func (b *Builder) Regions() int { return b.forest.Sets() }

// Ignored returns the number of skipped out-of-range pairs.
func (b *Builder) Ignored() int { return b.ignored }

// Connected reports whether two tiles are in the same region.
func (b *Builder) Connected(x, y uint32) bool { return b.forest.Same(x, y) }

// Level labels the regions with dense colors in first-encounter order.
func (b *Builder) Level(id uint8, readable *bitset.BitSet) (*colorstore.Level, error) {
	labels, _ := b.forest.Labels()
	colors := make([]colorstore.Color, len(labels))
	for i, l := range labels {
		colors[i] = colorstore.Color(l)
	}
	return colorstore.NewLevel(id, colors, readable)
}

// BuildLevel extracts and colors one level.
func BuildLevel(ctx context.Context, e *Extractor, level uint8) (*colorstore.Level, *LevelStats, error) {
	lvl, ok := e.h.Level(level)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}

	b := NewBuilder(lvl.Grid.TileCount())
	stats, err := e.Extract(ctx, level, b.Add)
	if err != nil {
		return nil, nil, err
	}
	l, err := b.Level(level, stats.ReadableSet)
	if err != nil {
		return nil, nil, err
	}
	stats.Regions = l.NumColors()
	return l, stats, nil
}
