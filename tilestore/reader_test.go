package tilestore

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/hierarchy"
	"github.com/hupe1980/tileconn/resource"
	"github.com/hupe1980/tileconn/tile"
)

func testHierarchy(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	g, err := hierarchy.NewGrid(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 4}}, 1)
	require.NoError(t, err)
	h, err := hierarchy.New([]hierarchy.Level{{ID: 0, Name: "local", Grid: g}}, nil)
	require.NoError(t, err)
	return h
}

func TestWriteReadTile(t *testing.T) {
	ctx := context.Background()
	h := testHierarchy(t)
	store := blobstore.NewMemoryStore()

	want := &tile.Tile{
		ID:    graphid.TileID{Level: 0, Index: 5},
		Nodes: []tile.Node{{Point: orb.Point{1.5, 1.5}, EdgeIndex: 0, EdgeCount: 1}},
		Edges: []tile.DirectedEdge{{EndNode: graphid.MustNew(0, 6, 0), Use: tile.UseRoad, Length: 100}},
	}

	w := NewWriter(store, h, tile.CompressionLZ4)
	require.NoError(t, w.WriteTile(ctx, want))

	r := NewReader(store, h, WithResourceController(resource.NewController(resource.Config{
		IOLimitBytesPerSec: 1 << 20,
	})))
	got, err := r.ReadTile(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = r.ReadTile(ctx, graphid.TileID{Level: 0, Index: 6})
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	_, err = r.ReadTile(ctx, graphid.TileID{Level: 0, Index: 99})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestReadTileCorrupt(t *testing.T) {
	ctx := context.Background()
	h := testHierarchy(t)
	store := blobstore.NewMemoryStore()
	r := NewReader(store, h)

	require.NoError(t, store.Put(ctx, "0/001.gph", []byte("not a tile at all, definitely not")))
	_, err := r.ReadTile(ctx, graphid.TileID{Level: 0, Index: 1})
	require.ErrorIs(t, err, tile.ErrCorrupt)

	// A valid tile stored under the wrong path.
	data, err := tile.Encode(&tile.Tile{ID: graphid.TileID{Level: 0, Index: 3}}, tile.CompressionNone)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "0/002.gph", data))
	_, err = r.ReadTile(ctx, graphid.TileID{Level: 0, Index: 2})
	require.ErrorIs(t, err, tile.ErrCorrupt)

	data[len(data)-1] ^= 0xff
	require.NoError(t, store.Put(ctx, "0/003.gph", data))
	_, err = r.ReadTile(ctx, graphid.TileID{Level: 0, Index: 3})
	require.ErrorIs(t, err, tile.ErrChecksum)
}

func TestListTiles(t *testing.T) {
	ctx := context.Background()
	h := testHierarchy(t)
	store := blobstore.NewMemoryStore()

	w := NewWriter(store, h, tile.CompressionNone)
	for _, idx := range []uint32{0, 3, 15} {
		require.NoError(t, w.WriteTile(ctx, &tile.Tile{ID: graphid.TileID{Level: 0, Index: idx}}))
	}
	require.NoError(t, store.Put(ctx, "0/099.gph", []byte("out of grid")))
	require.NoError(t, store.Put(ctx, "0/README", []byte("ignored")))

	r := NewReader(store, h)
	bm, err := r.ListTiles(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 3, 15}, bm.ToArray())

	_, err = r.ListTiles(ctx, 4)
	require.ErrorIs(t, err, ErrUnknownLevel)
}
