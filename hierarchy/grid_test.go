package hierarchy

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := NewGrid(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 2}}, 1)
	require.NoError(t, err)
	return g
}

func TestNewGridInvalid(t *testing.T) {
	tests := []struct {
		name   string
		bounds orb.Bound
		size   float64
	}{
		{"zero size", World, 0},
		{"negative size", World, -1},
		{"nan size", World, math.NaN()},
		{"empty bounds", orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 1}}, 1},
		{"out of range", orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{200, 10}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.bounds, tt.size)
			require.ErrorIs(t, err, ErrInvalidGrid)
		})
	}
}

func TestGridDimensions(t *testing.T) {
	g, err := NewGrid(World, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 1440, g.Columns())
	assert.Equal(t, 720, g.Rows())
	assert.Equal(t, 1440*720, g.TileCount())

	g, err = NewGrid(World, 4)
	require.NoError(t, err)
	assert.Equal(t, 90*45, g.TileCount())
}

func TestGridTileIndex(t *testing.T) {
	g := testGrid(t)

	tests := []struct {
		p    orb.Point
		want uint32
		ok   bool
	}{
		{orb.Point{0.5, 0.5}, 0, true},
		{orb.Point{1.5, 0.5}, 1, true},
		{orb.Point{0.5, 1.5}, 2, true},
		{orb.Point{1.5, 1.5}, 3, true},
		{orb.Point{2, 2}, 3, true},
		{orb.Point{0, 0}, 0, true},
		{orb.Point{-0.1, 0.5}, 0, false},
		{orb.Point{0.5, 2.1}, 0, false},
		{orb.Point{math.NaN(), 0.5}, 0, false},
	}
	for _, tt := range tests {
		got, ok := g.TileIndex(tt.p)
		assert.Equal(t, tt.ok, ok, "point %v", tt.p)
		if tt.ok {
			assert.Equal(t, tt.want, got, "point %v", tt.p)
		}
	}
}

func TestGridTileBoundsAndPolygon(t *testing.T) {
	g := testGrid(t)

	b := g.TileBounds(3)
	assert.Equal(t, orb.Point{1, 1}, b.Min)
	assert.Equal(t, orb.Point{2, 2}, b.Max)
	assert.Equal(t, orb.Point{1.5, 1.5}, g.Center(3))

	poly := g.Polygon(1)
	require.Len(t, poly, 1)
	ring := poly[0]
	assert.True(t, ring.Closed())
	assert.Equal(t, g.TileBounds(1), ring.Bound())

	assert.True(t, g.Contains(3))
	assert.False(t, g.Contains(4))
}

func TestGridIntersectingZeroRadius(t *testing.T) {
	g := testGrid(t)

	assert.Equal(t, []uint32{2}, g.Intersecting(orb.Point{0.5, 1.5}, 0))
	assert.Empty(t, g.Intersecting(orb.Point{5, 5}, 0))
}

func TestGridIntersecting(t *testing.T) {
	g := testGrid(t)
	p := orb.Point{0.5, 0.5}

	// ~55 km reaches only the home tile.
	assert.Equal(t, []uint32{0}, g.Intersecting(p, 50_000))

	// One degree of latitude is ~111 km; 0.5° to the neighbors.
	assert.Equal(t, []uint32{0, 1, 2}, g.Intersecting(p, 60_000))

	// The diagonal corner (1,1) is ~78.6 km away.
	assert.Equal(t, []uint32{0, 1, 2, 3}, g.Intersecting(p, 80_000))
}

func TestGridIntersectingOffGrid(t *testing.T) {
	g := testGrid(t)

	assert.Empty(t, g.Intersecting(orb.Point{10, 10}, 1000))
	// A point just west of the grid reaches tile 0 with a generous radius.
	assert.Equal(t, []uint32{0}, g.Intersecting(orb.Point{-0.1, 0.5}, 20_000))
}

func TestGridIntersectingMonotonic(t *testing.T) {
	g, err := NewGrid(World, 1)
	require.NoError(t, err)

	p := orb.Point{13.4, 52.5}
	prev := map[uint32]bool{}
	for _, r := range []float64{0, 1_000, 50_000, 150_000, 400_000} {
		cur := map[uint32]bool{}
		for _, idx := range g.Intersecting(p, r) {
			cur[idx] = true
		}
		for idx := range prev {
			assert.True(t, cur[idx], "radius %v lost tile %d", r, idx)
		}
		prev = cur
	}
}

func TestGridIntersectingAntimeridian(t *testing.T) {
	g, err := NewGrid(World, 1)
	require.NoError(t, err)

	got := g.Intersecting(orb.Point{179.9, 0.5}, 30_000)

	west, _ := g.TileIndex(orb.Point{-179.5, 0.5})
	east, _ := g.TileIndex(orb.Point{179.5, 0.5})
	assert.Contains(t, got, west)
	assert.Contains(t, got, east)
	assert.IsIncreasing(t, got)
}

func TestDistanceToBound(t *testing.T) {
	b := orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{2, 2}}

	assert.Zero(t, distanceToBound(orb.Point{1.5, 1.5}, b))

	south := orb.Point{1.5, 0}
	assert.InDelta(t, geo.DistanceHaversine(south, orb.Point{1.5, 1}), distanceToBound(south, b), 1e-6)

	// West of the bound the nearest edge point never lies farther than the
	// point at the same latitude.
	west := orb.Point{0, 1.5}
	assert.LessOrEqual(t, distanceToBound(west, b), geo.DistanceHaversine(west, orb.Point{1, 1.5}))
}
