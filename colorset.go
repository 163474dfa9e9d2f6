package tileconn

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// ColorSet is an immutable-by-convention set of colors of one level.
// The zero value is an empty set.
type ColorSet struct {
	bm *roaring.Bitmap
}

// NewColorSet creates a set holding colors.
func NewColorSet(colors ...Color) ColorSet {
	bm := roaring.New()
	for _, c := range colors {
		bm.Add(uint32(c))
	}
	return ColorSet{bm: bm}
}

func (s ColorSet) add(c Color) ColorSet {
	if s.bm == nil {
		s.bm = roaring.New()
	}
	s.bm.Add(uint32(c))
	return s
}

// Contains reports whether c is in the set.
func (s ColorSet) Contains(c Color) bool {
	return s.bm != nil && s.bm.Contains(uint32(c))
}

// Len returns the number of colors.
func (s ColorSet) Len() int {
	if s.bm == nil {
		return 0
	}
	return int(s.bm.GetCardinality())
}

// IsEmpty reports whether the set holds no colors.
func (s ColorSet) IsEmpty() bool {
	return s.bm == nil || s.bm.IsEmpty()
}

// Slice returns the colors in ascending order.
func (s ColorSet) Slice() []Color {
	if s.bm == nil {
		return nil
	}
	out := make([]Color, 0, s.bm.GetCardinality())
	it := s.bm.Iterator()
	for it.HasNext() {
		out = append(out, Color(it.Next()))
	}
	return out
}

// Intersects reports whether s and o share a color.
func (s ColorSet) Intersects(o ColorSet) bool {
	if s.bm == nil || o.bm == nil {
		return false
	}
	return s.bm.Intersects(o.bm)
}

// Union returns a new set with the colors of s and o.
func (s ColorSet) Union(o ColorSet) ColorSet {
	switch {
	case s.bm == nil && o.bm == nil:
		return ColorSet{}
	case s.bm == nil:
		return ColorSet{bm: o.bm.Clone()}
	case o.bm == nil:
		return ColorSet{bm: s.bm.Clone()}
	}
	return ColorSet{bm: roaring.Or(s.bm, o.bm)}
}

// String formats the set like {0,3,7}.
func (s ColorSet) String() string {
	if s.bm == nil {
		return "{}"
	}
	return s.bm.String()
}
