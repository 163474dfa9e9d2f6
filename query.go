package tileconn

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/hupe1980/tileconn/colorstore"
	"github.com/hupe1980/tileconn/graphid"
)

// ColorOf returns the color of the tile holding id.
func (m *Map) ColorOf(id graphid.GraphID) (c Color, err error) {
	start := time.Now()
	defer func() { m.recordQuery("color_of", id.Level(), start, 1, err) }()

	l, _, err := m.level(m.current.Load(), id.Level())
	if err != nil {
		return 0, err
	}
	c, ok := l.Color(id.TileIndex())
	if !ok {
		return 0, &TileRangeError{Tile: id.Tile(), Tiles: l.TileCount()}
	}
	return c, nil
}

// ColorsInRadius returns the colors of all tiles of level whose bounds come
// within radius meters of p. A radius of 0 yields the color of the tile
// containing p. A point outside the level's grid yields an empty set.
func (m *Map) ColorsInRadius(level uint8, p orb.Point, radius float64) (set ColorSet, err error) {
	start := time.Now()
	defer func() { m.recordQuery("colors_in_radius", level, start, set.Len(), err) }()

	return m.colorsInRadius(m.current.Load(), level, p, radius)
}

func (m *Map) colorsInRadius(snap *colorstore.Snapshot, level uint8, p orb.Point, radius float64) (ColorSet, error) {
	if err := validateQuery(p, radius); err != nil {
		return ColorSet{}, err
	}
	l, hl, err := m.level(snap, level)
	if err != nil {
		return ColorSet{}, err
	}

	var set ColorSet
	for _, idx := range hl.Grid.Intersecting(p, radius) {
		if c, ok := l.Color(idx); ok {
			set = set.add(c)
		}
	}
	return set, nil
}

// ColorsForLocation returns the colors within radius of loc.Point plus the
// colors of the tiles holding loc's candidate edges on the same level.
// Candidates on other levels are ignored.
func (m *Map) ColorsForLocation(level uint8, loc Location, radius float64) (set ColorSet, err error) {
	start := time.Now()
	defer func() { m.recordQuery("colors_for_location", level, start, set.Len(), err) }()

	return m.colorsForLocation(m.current.Load(), level, loc, radius)
}

func (m *Map) colorsForLocation(snap *colorstore.Snapshot, level uint8, loc Location, radius float64) (ColorSet, error) {
	set, err := m.colorsInRadius(snap, level, loc.Point, radius)
	if err != nil {
		return ColorSet{}, err
	}
	l, _, err := m.level(snap, level)
	if err != nil {
		return ColorSet{}, err
	}
	for _, cand := range loc.Candidates {
		if cand.Edge.Level() != level {
			continue
		}
		if c, ok := l.Color(cand.Edge.TileIndex()); ok {
			set = set.add(c)
		}
	}
	return set, nil
}

// Connected reports whether a and b may be connected at level: true when the
// colors found around them intersect. False means no path exists between
// the searched areas.
func (m *Map) Connected(level uint8, a, b Location, radius float64) (ok bool, err error) {
	start := time.Now()
	defer func() { m.recordQuery("connected", level, start, 0, err) }()

	snap := m.current.Load()
	ca, err := m.colorsForLocation(snap, level, a, radius)
	if err != nil {
		return false, err
	}
	cb, err := m.colorsForLocation(snap, level, b, radius)
	if err != nil {
		return false, err
	}
	return ca.Intersects(cb), nil
}

func validateQuery(p orb.Point, radius float64) error {
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius < 0 {
		return fmt.Errorf("%w: radius %v", ErrInvalidArgument, radius)
	}
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: point %v", ErrInvalidArgument, p)
		}
	}
	return nil
}

func (m *Map) recordQuery(op string, level uint8, start time.Time, colors int, err error) {
	m.opts.metricsCollector.RecordQuery(op, time.Since(start), err)
	m.opts.logger.LogQuery(context.Background(), op, level, colors, err)
}
