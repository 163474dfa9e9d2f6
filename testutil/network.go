package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/paulmach/orb"

	"github.com/hupe1980/tileconn/blobstore"
	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/hierarchy"
	"github.com/hupe1980/tileconn/tile"
	"github.com/hupe1980/tileconn/tilestore"
)

// Level ids of the hierarchy returned by Hierarchy.
const (
	Coarse  uint8 = 0
	Fine    uint8 = 1
	Transit uint8 = 3
)

// Hierarchy returns a small hierarchy over [0,4]x[0,2]: a coarse level of 1°
// tiles (4x2), a fine level of 0.5° tiles (8x4) and a transit level of 1°
// tiles.
func Hierarchy() *hierarchy.Hierarchy {
	bounds := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 2}}
	mk := func(id uint8, name string, size float64) hierarchy.Level {
		g, err := hierarchy.NewGrid(bounds, size)
		if err != nil {
			panic(err)
		}
		return hierarchy.Level{ID: id, Name: name, Grid: g}
	}
	transit := mk(Transit, "transit", 1)
	h, err := hierarchy.New([]hierarchy.Level{mk(Coarse, "coarse", 1), mk(Fine, "fine", 0.5)}, &transit)
	if err != nil {
		panic(err)
	}
	return h
}

// Network is a synthetic graph with one node per tile, placed at the tile
// center. All edges of a tile leave that node.
// It implements the tile source interface, so it can feed a build directly.
type Network struct {
	h *hierarchy.Hierarchy

	mu    sync.Mutex
	tiles map[graphid.TileID]*tile.Tile
}

// NewNetwork creates an empty network over h.
func NewNetwork(h *hierarchy.Hierarchy) *Network {
	return &Network{h: h, tiles: make(map[graphid.TileID]*tile.Tile)}
}

// Hierarchy returns the hierarchy the network is laid out for.
func (n *Network) Hierarchy() *hierarchy.Hierarchy { return n.h }

// Add makes sure tile id exists, even without edges.
func (n *Network) Add(id graphid.TileID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tileLocked(id)
}

func (n *Network) tileLocked(id graphid.TileID) *tile.Tile {
	if t, ok := n.tiles[id]; ok {
		return t
	}
	lvl, ok := n.h.Level(id.Level)
	if !ok || !lvl.Grid.Contains(id.Index) {
		panic(fmt.Sprintf("testutil: tile %s outside hierarchy", id))
	}
	t := &tile.Tile{
		ID:    id,
		Nodes: []tile.Node{{Point: lvl.Grid.Center(id.Index)}},
	}
	n.tiles[id] = t
	return t
}

// Edge adds a directed edge leaving tile from and ending at end.
func (n *Network) Edge(from graphid.TileID, end graphid.GraphID, use tile.Use) {
	n.mu.Lock()
	defer n.mu.Unlock()

	t := n.tileLocked(from)
	t.Edges = append(t.Edges, tile.DirectedEdge{EndNode: end, Use: use, Length: 1000})
	t.Nodes[0].EdgeCount = uint32(len(t.Edges))
}

// Link adds a directed road edge from a to node 0 of b. Both tiles are created.
func (n *Network) Link(a, b graphid.TileID) {
	n.Add(b)
	base, err := b.Base()
	if err != nil {
		panic(err)
	}
	use := tile.UseRoad
	if n.h.IsTransit(a.Level) {
		use = tile.UseTransitConnection
		if a.Level == b.Level {
			use = tile.UseBus
		}
	}
	n.Edge(a, base, use)
}

// Connect links a and b in both directions.
func (n *Network) Connect(a, b graphid.TileID) {
	n.Link(a, b)
	n.Link(b, a)
}

// Remove drops tile id, making it absent.
func (n *Network) Remove(id graphid.TileID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.tiles, id)
}

// Tiles returns the ids of all tiles in ascending (level, index) order.
func (n *Network) Tiles() []graphid.TileID {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := slices.Collect(maps.Keys(n.tiles))
	slices.SortFunc(ids, func(a, b graphid.TileID) int {
		if a.Level != b.Level {
			return int(a.Level) - int(b.Level)
		}
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		}
		return 0
	})
	return ids
}

// ReadTile returns a copy of tile id, or an error wrapping
// blobstore.ErrNotFound.
func (n *Network) ReadTile(_ context.Context, id graphid.TileID) (*tile.Tile, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.tiles[id]
	if !ok {
		return nil, fmt.Errorf("testutil: tile %s: %w", id, blobstore.ErrNotFound)
	}
	return &tile.Tile{
		ID:    t.ID,
		Nodes: slices.Clone(t.Nodes),
		Edges: slices.Clone(t.Edges),
		Stops: slices.Clone(t.Stops),
	}, nil
}

// Write encodes all tiles into store at their tile paths.
func (n *Network) Write(ctx context.Context, store blobstore.BlobStore, c tile.Compression) error {
	w := tilestore.NewWriter(store, n.h, c)
	for _, id := range n.Tiles() {
		t, err := n.ReadTile(ctx, id)
		if err != nil {
			return err
		}
		if err := w.WriteTile(ctx, t); err != nil {
			return fmt.Errorf("testutil: write %s: %w", id, err)
		}
	}
	return nil
}

// MustStore writes the network into a fresh MemoryStore and panics on failure.
func (n *Network) MustStore(ctx context.Context, c tile.Compression) *blobstore.MemoryStore {
	s := blobstore.NewMemoryStore()
	if err := n.Write(ctx, s, c); err != nil {
		panic(err)
	}
	return s
}

// Components returns the weakly connected tile groups of an ordinary level by
// graph search, ordered by smallest tile. Every tile of the grid appears,
// including absent ones as singletons. Edges leaving the level are ignored.
func (n *Network) Components(level uint8) [][]uint32 {
	lvl, ok := n.h.Level(level)
	if !ok {
		return nil
	}
	count := lvl.Grid.TileCount()

	adj := make([][]uint32, count)
	n.mu.Lock()
	for id, t := range n.tiles {
		if id.Level != level {
			continue
		}
		for _, e := range t.Edges {
			end := e.EndNode.Tile()
			if end.Level != level || !lvl.Grid.Contains(end.Index) {
				continue
			}
			adj[id.Index] = append(adj[id.Index], end.Index)
			adj[end.Index] = append(adj[end.Index], id.Index)
		}
	}
	n.mu.Unlock()

	seen := make([]bool, count)
	var out [][]uint32
	for start := range count {
		if seen[start] {
			continue
		}
		seen[start] = true
		group := []uint32{uint32(start)}
		for q := 0; q < len(group); q++ {
			for _, nb := range adj[group[q]] {
				if !seen[nb] {
					seen[nb] = true
					group = append(group, nb)
				}
			}
		}
		slices.Sort(group)
		out = append(out, group)
	}
	return out
}
