package tileconn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/colorstore"
	"github.com/hupe1980/tileconn/hierarchy"
	"github.com/hupe1980/tileconn/internal/region"
	"github.com/hupe1980/tileconn/tilestore"
)

// Color labels one connected region of a level. Values are local to a build.
type Color = colorstore.Color

// TileSource loads decoded tiles. Errors satisfying
// errors.Is(err, blobstore.ErrNotFound) mark absent tiles; any other error
// marks the tile unreadable. Both leave the tile isolated.
type TileSource = region.TileSource

// TileLister is optionally implemented by a TileSource that can enumerate its
// tiles, so absent tiles are not probed one by one. tilestore.Reader
// implements it.
type TileLister = region.TileLister

// LevelStats summarizes the build of one level.
type LevelStats = region.LevelStats

// Map is a rebuildable connectivity coloring over a tile hierarchy.
//
// Queries and exports read an immutable snapshot and never block on builds.
// All methods are safe for concurrent use.
type Map struct {
	h    *hierarchy.Hierarchy
	src  TileSource
	opts options

	current   atomic.Pointer[colorstore.Snapshot]
	builds    singleflight.Group
	publishMu sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]*inflightBuild
}

// inflightBuild is the context shared by every caller waiting on one build.
// It is canceled only when the last waiter gives up.
type inflightBuild struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// New creates a map over h reading tiles from src. src may be nil for a map
// that is only loaded from snapshots.
func New(h *hierarchy.Hierarchy, src TileSource, optFns ...Option) (*Map, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: nil hierarchy", ErrInvalidArgument)
	}
	return &Map{h: h, src: src, opts: applyOptions(optFns)}, nil
}

// NewFromStore creates a map reading tiles laid out for h from store. Tile
// reads are throttled by the resource controller's IO limit, if configured.
func NewFromStore(h *hierarchy.Hierarchy, store blobstore.BlobStore, optFns ...Option) (*Map, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}
	o := applyOptions(optFns)
	r := tilestore.NewReader(store, h, tilestore.WithResourceController(o.resourceController))
	return New(h, r, optFns...)
}

// Hierarchy returns the hierarchy the map colors.
func (m *Map) Hierarchy() *hierarchy.Hierarchy { return m.h }

// Snapshot returns the current snapshot, or nil before the first build or load.
func (m *Map) Snapshot() *colorstore.Snapshot { return m.current.Load() }

// Level returns the coloring of a level.
func (m *Map) Level(level uint8) (*colorstore.Level, error) {
	l, _, err := m.level(m.current.Load(), level)
	return l, err
}

func (m *Map) level(snap *colorstore.Snapshot, level uint8) (*colorstore.Level, hierarchy.Level, error) {
	hl, ok := m.h.Level(level)
	if !ok {
		return nil, hierarchy.Level{}, &LevelError{
			Level: level,
			cause: fmt.Errorf("%w: unknown level", ErrInvalidArgument),
		}
	}
	l, ok := snap.Level(level)
	if !ok {
		return nil, hl, &LevelError{Level: level, cause: ErrNotBuilt}
	}
	if l.TileCount() != hl.Grid.TileCount() {
		return nil, hl, &LevelError{
			Level: level,
			cause: fmt.Errorf("%w: coloring has %d tiles, grid has %d", ErrInvalidArgument, l.TileCount(), hl.Grid.TileCount()),
		}
	}
	return l, hl, nil
}

func (m *Map) publish(levels ...*colorstore.Level) *colorstore.Snapshot {
	m.publishMu.Lock()
	defer m.publishMu.Unlock()
	snap := m.current.Load().With(levels...)
	m.current.Store(snap)
	return snap
}
