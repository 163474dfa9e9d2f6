package tileconn

import (
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/hupe1980/tileconn/colorstore"
)

// ExportGeoJSON renders a level as a GeoJSON FeatureCollection with one
// Polygon feature per tile. Each feature carries the properties color, tile,
// level and readable. Tiles without data appear with their own color.
func (m *Map) ExportGeoJSON(level uint8) (data []byte, err error) {
	start := time.Now()
	defer func() { m.opts.metricsCollector.RecordExport("geojson", len(data), time.Since(start), err) }()

	l, hl, err := m.level(m.current.Load(), level)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, l.TileCount())
	for i := range l.TileCount() {
		idx := uint32(i)
		c, _ := l.Color(idx)
		f := geojson.NewFeature(hl.Grid.Polygon(idx))
		f.Properties["color"] = uint32(c)
		f.Properties["tile"] = idx
		f.Properties["level"] = level
		f.Properties["readable"] = l.Readable(idx)
		fc.Append(f)
	}

	data, err = m.opts.codec.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("tileconn: encode geojson: %w", err)
	}
	return data, nil
}

// ExportRegionsGeoJSON renders a level as one MultiPolygon feature per color,
// made of the tiles of that region. Features carry the properties color,
// level, tiles (region size) and readable (tiles with data).
func (m *Map) ExportRegionsGeoJSON(level uint8) (data []byte, err error) {
	start := time.Now()
	defer func() { m.opts.metricsCollector.RecordExport("regions", len(data), time.Since(start), err) }()

	l, hl, err := m.level(m.current.Load(), level)
	if err != nil {
		return nil, err
	}

	polys := make([]orb.MultiPolygon, l.NumColors())
	readable := make([]int, l.NumColors())
	for i := range l.TileCount() {
		idx := uint32(i)
		c, _ := l.Color(idx)
		polys[c] = append(polys[c], hl.Grid.Polygon(idx))
		if l.Readable(idx) {
			readable[c]++
		}
	}

	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(polys))
	for c, mp := range polys {
		f := geojson.NewFeature(mp)
		f.Properties["color"] = uint32(c)
		f.Properties["level"] = level
		f.Properties["tiles"] = len(mp)
		f.Properties["readable"] = readable[c]
		fc.Append(f)
	}

	data, err = m.opts.codec.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("tileconn: encode geojson: %w", err)
	}
	return data, nil
}

// ExportFlat returns the colors of a level indexed by tile index.
func (m *Map) ExportFlat(level uint8) (colors []Color, err error) {
	start := time.Now()
	defer func() { m.opts.metricsCollector.RecordExport("flat", len(colors)*4, time.Since(start), err) }()

	l, _, err := m.level(m.current.Load(), level)
	if err != nil {
		return nil, err
	}
	return l.Colors(), nil
}

// WriteFlat writes the colors of a level to w as little endian uint32 words.
func (m *Map) WriteFlat(w io.Writer, level uint8) error {
	colors, err := m.ExportFlat(level)
	if err != nil {
		return err
	}
	return colorstore.WriteFlat(w, colors)
}
