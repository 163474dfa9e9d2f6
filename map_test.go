package tileconn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/hierarchy"
	"github.com/hupe1980/tileconn/resource"
	"github.com/hupe1980/tileconn/testutil"
	"github.com/hupe1980/tileconn/tile"
)

func tid(level uint8, index uint32) graphid.TileID {
	return graphid.TileID{Level: level, Index: index}
}

func gid(level uint8, index uint32) graphid.GraphID {
	return graphid.MustNew(level, index, 0)
}

func buildMap(t *testing.T, src TileSource, optFns ...Option) *Map {
	t.Helper()
	m, err := New(testutil.Hierarchy(), src, optFns...)
	require.NoError(t, err)
	_, err = m.Build(context.Background())
	require.NoError(t, err)
	return m
}

func mustColor(t *testing.T, m *Map, id graphid.GraphID) Color {
	t.Helper()
	c, err := m.ColorOf(id)
	require.NoError(t, err)
	return c
}

// unreadableSource fails reads of the listed tiles with a checksum error.
type unreadableSource struct {
	TileSource
	bad map[graphid.TileID]bool
}

func (s unreadableSource) ReadTile(ctx context.Context, id graphid.TileID) (*tile.Tile, error) {
	if s.bad[id] {
		return nil, tile.ErrChecksum
	}
	return s.TileSource.ReadTile(ctx, id)
}

func TestNew(t *testing.T) {
	_, err := New(nil, testutil.NewNetwork(testutil.Hierarchy()))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewFromStore(testutil.Hierarchy(), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	m, err := New(testutil.Hierarchy(), nil)
	require.NoError(t, err)
	assert.Nil(t, m.Snapshot())
	_, err = m.Build(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBuild_TwoSeparatePairs(t *testing.T) {
	n := testutil.NewNetwork(testutil.Hierarchy())
	n.Link(tid(testutil.Coarse, 0), tid(testutil.Coarse, 1))
	n.Link(tid(testutil.Coarse, 2), tid(testutil.Coarse, 3))
	m := buildMap(t, n)

	c0 := mustColor(t, m, gid(testutil.Coarse, 0))
	c1 := mustColor(t, m, gid(testutil.Coarse, 1))
	c2 := mustColor(t, m, gid(testutil.Coarse, 2))
	c3 := mustColor(t, m, gid(testutil.Coarse, 3))

	assert.Equal(t, c0, c1)
	assert.Equal(t, c2, c3)
	assert.NotEqual(t, c1, c2)
}

func TestBuild_UnreadableTileGetsOwnColor(t *testing.T) {
	n := testutil.NewNetwork(testutil.Hierarchy())
	n.Add(tid(testutil.Coarse, 5))
	n.Link(tid(testutil.Coarse, 6), tid(testutil.Coarse, 7))
	src := unreadableSource{TileSource: n, bad: map[graphid.TileID]bool{tid(testutil.Coarse, 5): true}}
	m := buildMap(t, src)

	c5 := mustColor(t, m, gid(testutil.Coarse, 5))
	c6 := mustColor(t, m, gid(testutil.Coarse, 6))
	c7 := mustColor(t, m, gid(testutil.Coarse, 7))

	assert.Equal(t, c6, c7)
	assert.NotEqual(t, c5, c6)

	l, err := m.Level(testutil.Coarse)
	require.NoError(t, err)
	assert.False(t, l.Readable(5))
	assert.True(t, l.Readable(6))
}

func TestColorsInRadius_ZeroRadiusReturnsContainingTile(t *testing.T) {
	n := testutil.NewNetwork(testutil.Hierarchy())
	n.Connect(tid(testutil.Coarse, 1), tid(testutil.Coarse, 2))
	m := buildMap(t, n)

	c2 := mustColor(t, m, gid(testutil.Coarse, 2))
	set, err := m.ColorsInRadius(testutil.Coarse, orb.Point{2.5, 0.5}, 0)
	require.NoError(t, err)
	assert.Equal(t, []Color{c2}, set.Slice())
}

func TestBuild_RebuildKeepsPartition(t *testing.T) {
	n := testutil.NewRNG(99).Network(testutil.Hierarchy(), testutil.Fine, 25)
	m := buildMap(t, n)
	first := m.Snapshot()

	_, err := m.Build(context.Background())
	require.NoError(t, err)
	second := m.Snapshot()

	assert.NotEqual(t, first.ID(), second.ID())
	assert.True(t, first.SamePartition(second))
	assert.Equal(t, first.Partition(), second.Partition())
}

func TestBuild_MatchesGraphSearch(t *testing.T) {
	h := testutil.Hierarchy()
	for seed := int64(1); seed <= 5; seed++ {
		rng := testutil.NewRNG(seed)
		n := rng.Network(h, testutil.Fine, 30)
		m := buildMap(t, n, WithConcurrency(3))

		l, err := m.Level(testutil.Fine)
		require.NoError(t, err)
		assert.Equal(t, n.Components(testutil.Fine), l.Partition(), "seed %d", seed)

		// Lookups are idempotent.
		for a := range uint32(l.TileCount()) {
			ca := mustColor(t, m, gid(testutil.Fine, a))
			assert.Equal(t, ca, mustColor(t, m, gid(testutil.Fine, a)))
		}
	}
}

func TestBuild_Stats(t *testing.T) {
	n := testutil.NewNetwork(testutil.Hierarchy())
	n.Connect(tid(testutil.Coarse, 0), tid(testutil.Coarse, 1))
	n.Link(tid(testutil.Transit, 0), tid(testutil.Fine, 0))

	m, err := New(testutil.Hierarchy(), n)
	require.NoError(t, err)
	stats, err := m.Build(context.Background())
	require.NoError(t, err)

	require.Len(t, stats.Levels, 3)
	assert.Equal(t, m.Snapshot().ID(), stats.Snapshot)

	coarse := stats.Levels[0]
	assert.Equal(t, testutil.Coarse, coarse.Level)
	assert.Equal(t, 8, coarse.Tiles)
	assert.Equal(t, 2, coarse.Readable)
	assert.Equal(t, 7, coarse.Regions)

	fine := stats.Levels[1]
	assert.Equal(t, 1, fine.Readable)
	assert.Equal(t, 32, fine.Regions)

	transit := stats.Levels[2]
	assert.Equal(t, testutil.Transit, transit.Level)
	assert.Equal(t, 1, transit.Translated)
}

func TestBuild_AllTilesMissing(t *testing.T) {
	m := buildMap(t, testutil.NewNetwork(testutil.Hierarchy()))

	l, err := m.Level(testutil.Fine)
	require.NoError(t, err)
	assert.Equal(t, 32, l.NumColors())
	assert.Equal(t, 0, l.ReadableCount())
}

func TestBuildLevels_OnlyRequestedLevels(t *testing.T) {
	n := testutil.NewNetwork(testutil.Hierarchy())
	n.Connect(tid(testutil.Coarse, 0), tid(testutil.Coarse, 1))

	m, err := New(testutil.Hierarchy(), n)
	require.NoError(t, err)

	stats, err := m.BuildLevels(context.Background(), testutil.Coarse, testutil.Coarse)
	require.NoError(t, err)
	assert.Len(t, stats.Levels, 1)

	_, err = m.ColorOf(gid(testutil.Coarse, 0))
	require.NoError(t, err)

	_, err = m.ColorOf(gid(testutil.Fine, 0))
	assert.ErrorIs(t, err, ErrNotBuilt)
	var le *LevelError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, testutil.Fine, le.Level)

	// Rebuilding one level keeps the others.
	_, err = m.BuildLevels(context.Background(), testutil.Fine)
	require.NoError(t, err)
	assert.Len(t, m.Snapshot().Levels(), 2)
}

func TestBuildLevels_UnknownLevel(t *testing.T) {
	m, err := New(testutil.Hierarchy(), testutil.NewNetwork(testutil.Hierarchy()))
	require.NoError(t, err)

	_, err = m.BuildLevels(context.Background(), 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Nil(t, m.Snapshot())
}

func TestBuild_CanceledPublishesNothing(t *testing.T) {
	n := testutil.NewNetwork(testutil.Hierarchy())
	n.Connect(tid(testutil.Coarse, 0), tid(testutil.Coarse, 1))
	m := buildMap(t, n)
	before := m.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Same(t, before, m.Snapshot())
}

func TestBuild_MemoryLimit(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	m, err := New(testutil.Hierarchy(), testutil.NewNetwork(testutil.Hierarchy()), WithResourceController(rc))
	require.NoError(t, err)

	_, err = m.Build(context.Background())
	assert.ErrorIs(t, err, resource.ErrMemoryLimit)
	assert.Nil(t, m.Snapshot())
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestBuild_WithBuildSlots(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxConcurrentBuilds: 1, MemoryLimitBytes: 1 << 20})
	n := testutil.NewRNG(3).Network(testutil.Hierarchy(), testutil.Fine, 10)
	m := buildMap(t, n, WithResourceController(rc))

	assert.Len(t, m.Snapshot().Levels(), 3)
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

// gatedSource blocks the first read until release is closed.
type gatedSource struct {
	TileSource
	started chan struct{}
	release chan struct{}
	once    sync.Once
	reads   atomic.Int64
}

func (s *gatedSource) ReadTile(ctx context.Context, id graphid.TileID) (*tile.Tile, error) {
	s.reads.Add(1)
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return s.TileSource.ReadTile(ctx, id)
}

func TestBuildLevels_ConcurrentCallsShareBuild(t *testing.T) {
	src := &gatedSource{
		TileSource: testutil.NewNetwork(testutil.Hierarchy()),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	m, err := New(testutil.Hierarchy(), src, WithConcurrency(1))
	require.NoError(t, err)

	ctx := context.Background()
	results := make([]*BuildStats, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = m.BuildLevels(ctx, testutil.Coarse)
	}()
	<-src.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = m.BuildLevels(ctx, testutil.Coarse)
	}()
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0].Snapshot, results[1].Snapshot)
	assert.Equal(t, int64(8), src.reads.Load())
}

func TestBuildLevels_CallerCancelDoesNotFailOthers(t *testing.T) {
	n := testutil.NewNetwork(testutil.Hierarchy())
	n.Connect(tid(testutil.Coarse, 0), tid(testutil.Coarse, 1))
	src := &gatedSource{
		TileSource: n,
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	m, err := New(testutil.Hierarchy(), src, WithConcurrency(1))
	require.NoError(t, err)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	var (
		wg         sync.WaitGroup
		errA, errB error
		statsB     *BuildStats
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = m.BuildLevels(ctxA, testutil.Coarse)
	}()
	<-src.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		statsB, errB = m.BuildLevels(context.Background(), testutil.Coarse)
	}()
	time.Sleep(50 * time.Millisecond)
	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.ErrorIs(t, errA, context.Canceled)
	require.NoError(t, errB)
	require.NotNil(t, m.Snapshot())
	assert.Equal(t, statsB.Snapshot, m.Snapshot().ID())
	assert.Equal(t, mustColor(t, m, gid(testutil.Coarse, 0)), mustColor(t, m, gid(testutil.Coarse, 1)))
}

func TestBuildLevels_LastCallerCancelStopsBuild(t *testing.T) {
	src := &gatedSource{
		TileSource: testutil.NewNetwork(testutil.Hierarchy()),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	m, err := New(testutil.Hierarchy(), src, WithConcurrency(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.BuildLevels(ctx, testutil.Coarse)
		done <- err
	}()
	<-src.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	close(src.release)

	// The abandoned build is forgotten; a new caller gets a fresh one.
	stats, err := m.BuildLevels(context.Background(), testutil.Coarse)
	require.NoError(t, err)
	assert.Equal(t, stats.Snapshot, m.Snapshot().ID())
}

func TestMap_QueriesDuringRebuild(t *testing.T) {
	n := testutil.NewRNG(11).Network(testutil.Hierarchy(), testutil.Fine, 40)
	m := buildMap(t, n)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 5 {
			if _, err := m.Build(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.Error(err)
				return
			}
		}
	}()

	for range 200 {
		_, err := m.ColorsInRadius(testutil.Fine, orb.Point{2, 1}, 30000)
		require.NoError(t, err)
		_, err = m.ColorOf(gid(testutil.Fine, 17))
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestMap_LevelValidatesAgainstHierarchy(t *testing.T) {
	m := buildMap(t, testutil.NewNetwork(testutil.Hierarchy()))

	_, err := m.Level(7)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	other, err := New(hierarchy.Default(), nil)
	require.NoError(t, err)
	other.publish(m.Snapshot().Levels()...)
	_, err = other.Level(testutil.Coarse)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
