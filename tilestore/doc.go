// Package tilestore reads and writes encoded graph tiles in a blobstore.
//
// Tiles live at "<level>/<ddd>/<ddd>/<ddd>.gph": the tile index is zero padded to
// a multiple of three digits (enough for the largest index of the level) and split
// into directories of three digits each. A world local grid at 0.25° has 1,036,800
// tiles, so its tile 415000 is stored as "2/000/415/000.gph".
package tilestore
