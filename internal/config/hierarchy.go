package config

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/hupe1980/tileconn/hierarchy"
)

// Build returns the configured hierarchy, or hierarchy.Default when no levels
// are configured.
func (h HierarchyConfig) Build() (*hierarchy.Hierarchy, error) {
	if len(h.Levels) == 0 && h.Transit == nil {
		return hierarchy.Default(), nil
	}

	bounds := hierarchy.World
	if h.Bounds != [4]float64{} {
		bounds = orb.Bound{
			Min: orb.Point{h.Bounds[0], h.Bounds[1]},
			Max: orb.Point{h.Bounds[2], h.Bounds[3]},
		}
	}

	level := func(lc LevelConfig) (hierarchy.Level, error) {
		g, err := hierarchy.NewGrid(bounds, lc.TileSize)
		if err != nil {
			return hierarchy.Level{}, fmt.Errorf("config: level %d: %w", lc.ID, err)
		}
		return hierarchy.Level{ID: lc.ID, Name: lc.Name, Grid: g}, nil
	}

	levels := make([]hierarchy.Level, 0, len(h.Levels))
	for _, lc := range h.Levels {
		l, err := level(lc)
		if err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	var transit *hierarchy.Level
	if h.Transit != nil {
		l, err := level(*h.Transit)
		if err != nil {
			return nil, err
		}
		transit = &l
	}
	return hierarchy.New(levels, transit)
}
