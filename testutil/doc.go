// Package testutil builds synthetic tiled networks for tests.
//
// This package is intended for use in tests and benchmarks only.
//
// # Hand-built networks
//
//	h := testutil.Hierarchy()
//	n := testutil.NewNetwork(h)
//	n.Connect(graphid.TileID{Level: 0, Index: 0}, graphid.TileID{Level: 0, Index: 1})
//	store := n.MustStore(ctx, tile.CompressionNone)
//
// # Random networks
//
//	rng := testutil.NewRNG(seed)
//	n := rng.Network(h, 0, 20)       // 20 random links on level 0
//	want := n.Components(0)          // reference partition by graph search
package testutil
