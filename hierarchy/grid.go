package hierarchy

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

var (
	// ErrInvalidGrid is returned when grid parameters cannot describe a tiling.
	ErrInvalidGrid = errors.New("hierarchy: invalid grid")

	// ErrInvalidHierarchy is returned when a level set is inconsistent.
	ErrInvalidHierarchy = errors.New("hierarchy: invalid level set")
)

const epsilon = 1e-9

// Grid is a regular lat/lon tiling of a bounding box.
type Grid struct {
	bounds   orb.Bound
	tileSize float64
	cols     int
	rows     int
	global   bool // bounds span all longitudes; columns wrap at the antimeridian
}

// NewGrid creates a grid of square tiles of tileSize degrees covering bounds.
func NewGrid(bounds orb.Bound, tileSize float64) (*Grid, error) {
	if !(tileSize > 0) || math.IsInf(tileSize, 0) {
		return nil, fmt.Errorf("%w: tile size %v", ErrInvalidGrid, tileSize)
	}
	width := bounds.Max.X() - bounds.Min.X()
	height := bounds.Max.Y() - bounds.Min.Y()
	if !(width > 0) || !(height > 0) {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrInvalidGrid, bounds)
	}
	if bounds.Min.Y() < -90 || bounds.Max.Y() > 90 || bounds.Min.X() < -180 || bounds.Max.X() > 180 {
		return nil, fmt.Errorf("%w: bounds %v outside lon/lat range", ErrInvalidGrid, bounds)
	}

	cols := int(math.Ceil(width/tileSize - epsilon))
	rows := int(math.Ceil(height/tileSize - epsilon))

	return &Grid{
		bounds:   bounds,
		tileSize: tileSize,
		cols:     cols,
		rows:     rows,
		global:   width >= 360-epsilon,
	}, nil
}

// Bounds returns the area covered by the grid.
func (g *Grid) Bounds() orb.Bound { return g.bounds }

// TileSize returns the edge length of a tile in degrees.
func (g *Grid) TileSize() float64 { return g.tileSize }

// Columns returns the number of tile columns.
func (g *Grid) Columns() int { return g.cols }

// Rows returns the number of tile rows.
func (g *Grid) Rows() int { return g.rows }

// TileCount returns the number of tiles; valid indices are [0, TileCount).
func (g *Grid) TileCount() int { return g.cols * g.rows }

// Contains reports whether index is a valid tile index.
func (g *Grid) Contains(index uint32) bool {
	return uint64(index) < uint64(g.TileCount())
}

// TileIndex returns the index of the tile containing p.
// Points on the northern or eastern grid edge belong to the last row or column.
func (g *Grid) TileIndex(p orb.Point) (uint32, bool) {
	if math.IsNaN(p.X()) || math.IsNaN(p.Y()) || !g.bounds.Contains(p) {
		return 0, false
	}
	col := min(int((p.X()-g.bounds.Min.X())/g.tileSize), g.cols-1)
	row := min(int((p.Y()-g.bounds.Min.Y())/g.tileSize), g.rows-1)
	return uint32(row*g.cols + col), true
}

// RowCol splits a tile index into its row and column.
func (g *Grid) RowCol(index uint32) (row, col int) {
	return int(index) / g.cols, int(index) % g.cols
}

// TileBounds returns the bounding box of a tile.
func (g *Grid) TileBounds(index uint32) orb.Bound {
	row, col := g.RowCol(index)
	minX := g.bounds.Min.X() + float64(col)*g.tileSize
	minY := g.bounds.Min.Y() + float64(row)*g.tileSize
	return orb.Bound{
		Min: orb.Point{minX, minY},
		Max: orb.Point{math.Min(minX+g.tileSize, g.bounds.Max.X()), math.Min(minY+g.tileSize, g.bounds.Max.Y())},
	}
}

// Polygon returns the boundary of a tile as a closed polygon.
func (g *Grid) Polygon(index uint32) orb.Polygon {
	return g.TileBounds(index).ToPolygon()
}

// Center returns the center of a tile.
func (g *Grid) Center(index uint32) orb.Point {
	return g.TileBounds(index).Center()
}

// Intersecting returns the indices of all tiles within radius meters of p, in
// ascending order. A zero radius yields only the tile containing p. Tiles are
// matched by the great-circle distance from p to the nearest point of the tile.
func (g *Grid) Intersecting(p orb.Point, radius float64) []uint32 {
	if radius == 0 {
		if idx, ok := g.TileIndex(p); ok {
			return []uint32{idx}
		}
		return nil
	}

	rowLo, rowHi, lonRanges, ok := g.searchWindow(p, radius)
	if !ok {
		return nil
	}

	var out []uint32
	for row := rowLo; row <= rowHi; row++ {
		for _, r := range lonRanges {
			for col := r[0]; col <= r[1]; col++ {
				idx := uint32(row*g.cols + col)
				if distanceToBound(p, g.TileBounds(idx)) <= radius {
					out = append(out, idx)
				}
			}
		}
	}

	if len(lonRanges) > 1 {
		sortUint32(out)
	}
	return out
}

// searchWindow returns the candidate row range and column ranges whose tiles may lie
// within radius of p. The window is the circle's lat/lon bounding box, which on a
// sphere widens towards the poles.
func (g *Grid) searchWindow(p orb.Point, radius float64) (rowLo, rowHi int, cols [][2]int, ok bool) {
	delta := radius / orb.EarthRadius // angular radius
	lat := deg2rad(p.Y())

	minLat := p.Y() - rad2deg(delta)
	maxLat := p.Y() + rad2deg(delta)

	allLon := minLat <= -90 || maxLat >= 90 || math.Sin(delta) >= math.Cos(lat) || delta >= math.Pi
	var minLon, maxLon float64
	if allLon {
		minLon, maxLon = -180, 180
	} else {
		dLon := rad2deg(math.Asin(math.Sin(delta) / math.Cos(lat)))
		minLon, maxLon = p.X()-dLon, p.X()+dLon
	}

	minLat = math.Max(minLat, g.bounds.Min.Y())
	maxLat = math.Min(maxLat, g.bounds.Max.Y())
	if minLat > maxLat {
		return 0, 0, nil, false
	}
	rowLo = g.rowOf(minLat)
	rowHi = g.rowOf(maxLat)

	var lonSpans [][2]float64
	switch {
	case allLon || maxLon-minLon >= 360:
		lonSpans = [][2]float64{{g.bounds.Min.X(), g.bounds.Max.X()}}
	case g.global && minLon < -180:
		lonSpans = [][2]float64{{minLon + 360, 180}, {-180, maxLon}}
	case g.global && maxLon > 180:
		lonSpans = [][2]float64{{minLon, 180}, {-180, maxLon - 360}}
	default:
		lonSpans = [][2]float64{{minLon, maxLon}}
	}

	for _, s := range lonSpans {
		lo := math.Max(s[0], g.bounds.Min.X())
		hi := math.Min(s[1], g.bounds.Max.X())
		if lo > hi {
			continue
		}
		cols = append(cols, [2]int{g.colOf(lo), g.colOf(hi)})
	}
	return rowLo, rowHi, cols, len(cols) > 0
}

func (g *Grid) rowOf(lat float64) int {
	return clampInt(int((lat-g.bounds.Min.Y())/g.tileSize), 0, g.rows-1)
}

func (g *Grid) colOf(lon float64) int {
	return clampInt(int((lon-g.bounds.Min.X())/g.tileSize), 0, g.cols-1)
}

// distanceToBound returns the great-circle distance in meters from p to the nearest
// point of b (0 when p lies inside b).
func distanceToBound(p orb.Point, b orb.Bound) float64 {
	if b.Contains(p) {
		return 0
	}

	// Within the bound's longitude span the nearest point is due north or south.
	if lonDiff(p.X(), b.Min.X()) >= 0 && lonDiff(p.X(), b.Max.X()) <= 0 {
		return geo.DistanceHaversine(p, orb.Point{p.X(), clamp(p.Y(), b.Min.Y(), b.Max.Y())})
	}

	// Otherwise the nearest point lies on the closer meridian edge, at the foot of the
	// perpendicular great circle, which sits poleward of p's latitude.
	edge := b.Min.X()
	if math.Abs(lonDiff(p.X(), b.Max.X())) < math.Abs(lonDiff(p.X(), b.Min.X())) {
		edge = b.Max.X()
	}
	dLon := deg2rad(lonDiff(p.X(), edge))

	var footLat float64
	if c := math.Cos(dLon); c > epsilon {
		footLat = rad2deg(math.Atan(math.Tan(deg2rad(p.Y())) / c))
	} else if p.Y() >= 0 {
		footLat = 90
	} else {
		footLat = -90
	}

	return geo.DistanceHaversine(p, orb.Point{edge, clamp(footLat, b.Min.Y(), b.Max.Y())})
}

// lonDiff returns a-b normalized to (-180, 180].
func lonDiff(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	switch {
	case d > 180:
		d -= 360
	case d <= -180:
		d += 360
	}
	return d
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func sortUint32(s []uint32) {
	// Insertion sort; callers hold at most a few dozen tiles.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
