// Package tile defines the in-memory model and binary format of one graph tile.
//
// A tile holds the nodes of one geographic cell at one hierarchy level, the
// directed edges leaving those nodes, and (on the transit level) the transit stops
// located in the cell. Edge end nodes are full graph ids and may point into other
// tiles or other levels.
//
// Binary layout (little endian):
//
//	header   magic "TCGT" | version u16 | compression u8 | level u8 | index u32 |
//	         nodes u32 | edges u32 | stops u32 | payload crc32c u32 | reserved u32
//	payload  compress-framed block of
//	         nodes  (lon f64, lat f64, edge index u32, edge count u32) * nodes
//	         edges  (end node u64, use u8, 3 pad, length u32) * edges
//	         stops  (node u32, name length u16, name bytes) * stops
package tile
