// Package region turns the tiles of one hierarchy level into connected regions.
//
// The Extractor scans tiles in parallel and emits tile-to-tile adjacencies; the
// Builder folds them into a disjoint-set forest and labels each region with a
// dense color.
package region

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/hierarchy"
	"github.com/hupe1980/tileconn/tile"
)

// ErrUnknownLevel is returned for a level the hierarchy does not define.
var ErrUnknownLevel = errors.New("region: unknown level")

// TileSource loads decoded tiles. Errors satisfying
// errors.Is(err, blobstore.ErrNotFound) mark absent tiles.
type TileSource interface {
	ReadTile(ctx context.Context, id graphid.TileID) (*tile.Tile, error)
}

// TileLister is implemented by sources that can enumerate the tiles they hold.
type TileLister interface {
	ListTiles(ctx context.Context, level uint8) (*roaring.Bitmap, error)
}

// Adjacency is an unordered pair of tile indices of one level.
type Adjacency struct {
	A, B uint32
}

// LevelStats summarizes one extraction pass.
type LevelStats struct {
	Level       uint8
	Tiles       int
	Readable    int
	Absent      int
	Unreadable  int
	Edges       int // directed edges scanned
	Adjacencies int // after per-tile dedup
	CrossLevel  int // edges leaving the level, ignored
	Translated  int // transit edges mapped onto transit tiles
	Malformed   int // edges or listed tiles outside any grid
	Regions     int // set by BuildLevel
	Duration    time.Duration

	// ReadableSet marks the tiles that had data.
	ReadableSet *bitset.BitSet
}

// Config configures an Extractor.
type Config struct {
	// Concurrency is the number of parallel tile readers (default GOMAXPROCS).
	Concurrency int
	// Logger receives per-tile diagnostics (nil discards).
	Logger *slog.Logger
}

// Extractor emits tile adjacencies for a level.
type Extractor struct {
	src         TileSource
	h           *hierarchy.Hierarchy
	concurrency int
	logger      *slog.Logger
}

// NewExtractor creates an extractor reading tiles from src laid out for h.
func NewExtractor(src TileSource, h *hierarchy.Hierarchy, cfg Config) *Extractor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{src: src, h: h, concurrency: cfg.Concurrency, logger: cfg.Logger}
}

type tileStatus uint8

const (
	statusReadable tileStatus = iota
	statusAbsent
	statusUnreadable
)

type tileResult struct {
	index      uint32
	status     tileStatus
	adj        []Adjacency
	edges      int
	crossLevel int
	translated int
	malformed  int
}

// Extract scans every tile of level and calls emit with the adjacencies of each
// readable tile. emit runs on the calling goroutine, one tile at a time.
//
// Absent and unreadable tiles are counted and skipped. Only context
// cancellation or a failing tile listing aborts the pass.
func (e *Extractor) Extract(ctx context.Context, level uint8, emit func([]Adjacency)) (*LevelStats, error) {
	lvl, ok := e.h.Level(level)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}

	start := time.Now()
	tiles := lvl.Grid.TileCount()
	stats := &LevelStats{
		Level:       level,
		Tiles:       tiles,
		ReadableSet: bitset.New(uint(tiles)),
	}

	var present []uint32
	if l, ok := e.src.(TileLister); ok {
		bm, err := l.ListTiles(ctx, level)
		if err != nil {
			return nil, fmt.Errorf("region: list level %d: %w", level, err)
		}
		present = make([]uint32, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			idx := it.Next()
			if !lvl.Grid.Contains(idx) {
				stats.Malformed++
				continue
			}
			present = append(present, idx)
		}
		stats.Absent = tiles - len(present)
	}
	candidate := func(i int) uint32 {
		if present != nil {
			return present[i]
		}
		return uint32(i)
	}
	n := tiles
	if present != nil {
		n = len(present)
	}

	g, gctx := errgroup.WithContext(ctx)
	results := make(chan tileResult, e.concurrency*4)
	var next atomic.Int64

	for w := 0; w < min(e.concurrency, max(n, 1)); w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				r, err := e.scanTile(gctx, lvl, candidate(i))
				if err != nil {
					return err
				}
				select {
				case results <- r:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

	var werr error
	go func() {
		werr = g.Wait()
		close(results)
	}()

	for r := range results {
		switch r.status {
		case statusReadable:
			stats.Readable++
			stats.ReadableSet.Set(uint(r.index))
		case statusAbsent:
			stats.Absent++
		case statusUnreadable:
			stats.Unreadable++
		}
		stats.Edges += r.edges
		stats.CrossLevel += r.crossLevel
		stats.Translated += r.translated
		stats.Malformed += r.malformed
		stats.Adjacencies += len(r.adj)
		if len(r.adj) > 0 {
			emit(r.adj)
		}
	}
	if werr != nil {
		return nil, werr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func (e *Extractor) scanTile(ctx context.Context, lvl hierarchy.Level, index uint32) (tileResult, error) {
	id := graphid.TileID{Level: lvl.ID, Index: index}
	res := tileResult{index: index}

	t, err := e.src.ReadTile(ctx, id)
	if err == nil {
		switch {
		case t == nil:
			err = fmt.Errorf("%w: source returned no tile", tile.ErrCorrupt)
		case t.ID != id:
			err = fmt.Errorf("%w: source returned tile %s", tile.ErrCorrupt, t.ID)
		}
	}
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return res, cerr
		}
		if errors.Is(err, blobstore.ErrNotFound) {
			res.status = statusAbsent
			e.logger.DebugContext(ctx, "tile absent", "tile", id.String())
		} else {
			res.status = statusUnreadable
			e.logger.WarnContext(ctx, "tile unreadable", "tile", id.String(), "error", err)
		}
		return res, nil
	}

	transit := e.h.IsTransit(lvl.ID)
	nb := roaring.New()
	for _, de := range t.Edges {
		res.edges++
		end := de.EndNode.Tile()
		switch {
		case end.Level == lvl.ID:
			if !lvl.Grid.Contains(end.Index) {
				res.malformed++
				continue
			}
			nb.Add(end.Index)
		case transit:
			tt, ok := e.h.Translate(end, lvl.ID)
			if !ok {
				res.malformed++
				continue
			}
			nb.Add(tt.Index)
			res.translated++
		default:
			if !e.h.Contains(end) {
				res.malformed++
				continue
			}
			res.crossLevel++
		}
	}
	if res.malformed > 0 {
		e.logger.WarnContext(ctx, "tile has edges ending outside the grid",
			"tile", id.String(),
			"malformed", res.malformed,
		)
	}

	res.adj = make([]Adjacency, 0, nb.GetCardinality())
	it := nb.Iterator()
	for it.HasNext() {
		res.adj = append(res.adj, Adjacency{A: index, B: it.Next()})
	}
	return res, nil
}
