// Package tileconn computes and serves connectivity colorings of tiled,
// hierarchical routing graphs.
//
// Every tile of every hierarchy level gets a color; two tiles share a color
// exactly when some chain of network edges, followed in either direction,
// links them at that level. This answers "can these two points possibly reach
// each other" in constant time, without a path search.
//
// # Quick Start
//
//	ctx := context.Background()
//	h := hierarchy.Default()
//	store, _ := blobstore.NewLocalStore("./tiles")
//	m, _ := tileconn.New(h, tilestore.NewReader(store, h))
//
//	stats, _ := m.Build(ctx)            // all levels, in parallel
//	c, _ := m.ColorOf(edgeID)           // O(1)
//	near, _ := m.ColorsInRadius(2, orb.Point{13.4, 52.5}, 500)
//
// # Reachability Test
//
// Connected compares the colors around two locations. A false result proves
// that no path exists at that level; a true result only says one may.
//
//	ok, _ := m.Connected(2, origin, destination, 200)
//
// # Rebuilds
//
// Build and BuildLevels replace the colorings of the rebuilt levels at once.
// Readers keep seeing the old snapshot until the new one is complete, and a
// canceled build publishes nothing. Color values are local to one build; to
// compare builds use Snapshot().SamePartition.
//
// # Persistence
//
//	m.Save(ctx, store, "colors.tcs")
//	m.Load(ctx, store, "colors.tcs")
//
//	name, _ := m.Publish(ctx, store)    // snapshot + CURRENT pointer
//	m.LoadCurrent(ctx, store)
//
// # Export
//
// ExportGeoJSON renders one polygon per tile for visual inspection,
// ExportRegionsGeoJSON one multipolygon per color, and ExportFlat the dense
// color array.
package tileconn
