// Package colorstore holds the result of a connectivity build: for every level,
// the color of every tile.
//
// A color is a small dense integer; two tiles of a level share a color exactly
// when they belong to the same weakly connected region. Color values are local to
// one build. Comparing two builds must go through Partition or SamePartition,
// never through raw color values.
//
// Levels and Snapshots are immutable once created and safe for concurrent reads.
package colorstore
