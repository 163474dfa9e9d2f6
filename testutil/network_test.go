package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/tile"
	"github.com/hupe1980/tileconn/tilestore"
)

func tid(level uint8, index uint32) graphid.TileID {
	return graphid.TileID{Level: level, Index: index}
}

func TestHierarchy(t *testing.T) {
	h := Hierarchy()

	coarse, ok := h.Level(Coarse)
	require.True(t, ok)
	assert.Equal(t, 8, coarse.Grid.TileCount())

	fine, ok := h.Level(Fine)
	require.True(t, ok)
	assert.Equal(t, 32, fine.Grid.TileCount())

	assert.True(t, h.IsTransit(Transit))
}

func TestNetwork_Components(t *testing.T) {
	n := NewNetwork(Hierarchy())
	n.Link(tid(Coarse, 0), tid(Coarse, 1))
	n.Link(tid(Coarse, 3), tid(Coarse, 2))
	n.Link(tid(Coarse, 2), tid(Fine, 9))

	got := n.Components(Coarse)
	assert.Equal(t, [][]uint32{{0, 1}, {2, 3}, {4}, {5}, {6}, {7}}, got)
}

func TestNetwork_ReadTile(t *testing.T) {
	ctx := context.Background()
	n := NewNetwork(Hierarchy())
	n.Connect(tid(Coarse, 0), tid(Coarse, 1))

	got, err := n.ReadTile(ctx, tid(Coarse, 0))
	require.NoError(t, err)
	require.Len(t, got.Edges, 1)
	assert.Equal(t, tid(Coarse, 1), got.Edges[0].EndNode.Tile())
	assert.Equal(t, uint32(1), got.Nodes[0].EdgeCount)
	assert.NoError(t, got.Validate())

	_, err = n.ReadTile(ctx, tid(Coarse, 5))
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	n.Remove(tid(Coarse, 0))
	_, err = n.ReadTile(ctx, tid(Coarse, 0))
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestNetwork_Write(t *testing.T) {
	ctx := context.Background()
	h := Hierarchy()
	n := NewNetwork(h)
	n.Connect(tid(Fine, 3), tid(Fine, 4))
	n.Link(tid(Transit, 1), tid(Fine, 3))

	store := n.MustStore(ctx, tile.CompressionLZ4)
	assert.Equal(t, 3, store.Len())

	r := tilestore.NewReader(store, h)
	got, err := r.ReadTile(ctx, tid(Transit, 1))
	require.NoError(t, err)
	require.Len(t, got.Edges, 1)
	assert.Equal(t, tile.UseTransitConnection, got.Edges[0].Use)
}

func TestRNG_NetworkIsReproducible(t *testing.T) {
	h := Hierarchy()
	a := NewRNG(4711).Network(h, Fine, 12)
	b := NewRNG(4711).Network(h, Fine, 12)

	assert.Equal(t, a.Tiles(), b.Tiles())
	assert.Equal(t, a.Components(Fine), b.Components(Fine))
}
