// Package hierarchy describes how a routing graph is cut into tiles.
//
// A Hierarchy is an ordered set of ordinary levels (for example highway, arterial
// and local roads) plus an optional transit level. Every level owns a Grid: a
// regular lat/lon raster of square tiles whose indices are dense and row-major,
// starting at the south-west corner of the grid bounds.
//
// Grids answer the geometric questions the connectivity map needs: which tile holds
// a point, what a tile's boundary polygon is, and which tiles a circle touches.
package hierarchy
