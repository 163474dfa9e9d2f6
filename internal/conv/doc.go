// Package conv provides checked integer conversions.
//
// Tile headers and snapshot files carry fixed-width counts that are decoded from
// untrusted bytes; these helpers reject values that would overflow the target type
// instead of silently truncating.
package conv
