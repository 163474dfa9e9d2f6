package tileconn

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/tileconn/colorstore"
	"github.com/hupe1980/tileconn/internal/region"
)

// Bytes held per tile while a level is built: union-find parent and size,
// the label array and the color array.
const buildBytesPerTile = 16

// BuildStats summarizes a build.
type BuildStats struct {
	Snapshot uuid.UUID
	Levels   []LevelStats
	Duration time.Duration
}

// Build colors every level of the hierarchy, transit included.
func (m *Map) Build(ctx context.Context) (*BuildStats, error) {
	return m.BuildLevels(ctx)
}

// BuildLevels colors the given levels (all levels when none are given) and
// publishes them together. Other levels keep their current coloring.
//
// Concurrent calls for the same level set share one build. A caller whose ctx
// is canceled stops waiting; the build itself is canceled, and nothing is
// published, only once every caller waiting on it has gone.
func (m *Map) BuildLevels(ctx context.Context, levels ...uint8) (*BuildStats, error) {
	if m.src == nil {
		return nil, fmt.Errorf("%w: map has no tile source", ErrInvalidArgument)
	}

	ids, err := m.normalizeLevels(levels)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := fmt.Sprint(ids)
	f := m.joinBuild(ctx, key)
	ch := m.builds.DoChan(key, func() (any, error) {
		defer m.finishBuild(key, f)
		return m.build(f.ctx, ids)
	})
	select {
	case r := <-ch:
		m.leaveBuild(key, f)
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*BuildStats), nil
	case <-ctx.Done():
		m.leaveBuild(key, f)
		return nil, ctx.Err()
	}
}

// joinBuild registers a waiter on the build for key. The build context keeps
// ctx's values but not its cancellation.
func (m *Map) joinBuild(ctx context.Context, key string) *inflightBuild {
	m.inflightMu.Lock()
	defer m.inflightMu.Unlock()

	if m.inflight == nil {
		m.inflight = make(map[string]*inflightBuild)
	}
	f := m.inflight[key]
	if f == nil {
		bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &inflightBuild{ctx: bctx, cancel: cancel}
		m.inflight[key] = f
	}
	f.waiters++
	return f
}

// leaveBuild drops a waiter. When none are left the build is canceled and
// forgotten, so later callers start a fresh one.
func (m *Map) leaveBuild(key string, f *inflightBuild) {
	m.inflightMu.Lock()
	defer m.inflightMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if m.inflight[key] == f {
		delete(m.inflight, key)
		m.builds.Forget(key)
	}
}

func (m *Map) finishBuild(key string, f *inflightBuild) {
	m.inflightMu.Lock()
	defer m.inflightMu.Unlock()

	if m.inflight[key] == f {
		delete(m.inflight, key)
	}
}

func (m *Map) normalizeLevels(levels []uint8) ([]uint8, error) {
	if len(levels) == 0 {
		for _, l := range m.h.All() {
			levels = append(levels, l.ID)
		}
		return levels, nil
	}
	ids := slices.Clone(levels)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	for _, id := range ids {
		if _, ok := m.h.Level(id); !ok {
			return nil, &LevelError{Level: id, cause: fmt.Errorf("%w: unknown level", ErrInvalidArgument)}
		}
	}
	return ids, nil
}

func (m *Map) build(ctx context.Context, ids []uint8) (*BuildStats, error) {
	start := time.Now()
	rc := m.opts.resourceController

	built := make([]*colorstore.Level, len(ids))
	stats := make([]LevelStats, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			if err := rc.AcquireBuild(gctx); err != nil {
				return err
			}
			defer rc.ReleaseBuild()

			hl, _ := m.h.Level(id)
			mem := int64(hl.Grid.TileCount()) * buildBytesPerTile
			if err := rc.AcquireMemory(gctx, mem); err != nil {
				return &LevelError{Level: id, cause: err}
			}
			defer rc.ReleaseMemory(mem)

			logger := m.opts.logger.WithLevel(id)
			e := region.NewExtractor(m.src, m.h, region.Config{
				Concurrency: m.opts.concurrency,
				Logger:      logger.Logger,
			})

			levelStart := time.Now()
			l, st, err := region.BuildLevel(gctx, e, id)
			m.opts.metricsCollector.RecordLevelBuild(id, st, time.Since(levelStart), err)
			if err != nil {
				return &LevelError{Level: id, cause: translateError(err)}
			}
			m.opts.logger.LogLevelBuilt(gctx, st)

			built[i], stats[i] = l, *st
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// A level may finish just as the caller gives up.
		err = ctx.Err()
	}
	if err != nil {
		m.opts.logger.LogBuild(ctx, ids, time.Since(start), err)
		return nil, err
	}

	snap := m.publish(built...)
	res := &BuildStats{
		Snapshot: snap.ID(),
		Levels:   stats,
		Duration: time.Since(start),
	}
	m.opts.logger.LogBuild(ctx, ids, res.Duration, nil)
	return res, nil
}
