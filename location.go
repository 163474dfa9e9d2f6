package tileconn

import (
	"github.com/paulmach/orb"

	"github.com/hupe1980/tileconn/graphid"
)

// Candidate is a graph edge near a query location, as found by an external
// location search.
type Candidate struct {
	Edge     graphid.GraphID
	Point    orb.Point // projection of the location onto the edge
	Distance float64   // meters from the location to Point
}

// Location is a query point together with its candidate edges.
type Location struct {
	Point      orb.Point
	Candidates []Candidate
}

// NewLocation creates a location at p.
func NewLocation(p orb.Point, candidates ...Candidate) Location {
	return Location{Point: p, Candidates: candidates}
}
