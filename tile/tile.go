package tile

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/hupe1980/tileconn/graphid"
)

// Use classifies a directed edge.
type Use uint8

const (
	UseRoad Use = iota
	UseRamp
	UseFerry
	UseRail
	UseBus
	// UseTransitConnection links a transit stop to the road network.
	UseTransitConnection
	// UseTransitTransfer links two transit stops.
	UseTransitTransfer
)

func (u Use) String() string {
	switch u {
	case UseRoad:
		return "road"
	case UseRamp:
		return "ramp"
	case UseFerry:
		return "ferry"
	case UseRail:
		return "rail"
	case UseBus:
		return "bus"
	case UseTransitConnection:
		return "transit_connection"
	case UseTransitTransfer:
		return "transit_transfer"
	default:
		return fmt.Sprintf("use(%d)", uint8(u))
	}
}

// Node is a graph vertex. Its outgoing edges are Edges[EdgeIndex:EdgeIndex+EdgeCount].
type Node struct {
	Point     orb.Point
	EdgeIndex uint32
	EdgeCount uint32
}

// DirectedEdge leaves a node of the tile and ends at EndNode, which may live in
// another tile or on another level.
type DirectedEdge struct {
	EndNode graphid.GraphID
	Use     Use
	Length  uint32 // meters
}

// TransitStop marks a node of a transit tile as a stop.
type TransitStop struct {
	Node uint32
	Name string
}

// Tile is one decoded graph tile.
type Tile struct {
	ID    graphid.TileID
	Nodes []Node
	Edges []DirectedEdge
	Stops []TransitStop
}

// NodeID returns the graph id of the i-th node.
func (t *Tile) NodeID(i uint32) (graphid.GraphID, error) {
	return graphid.New(t.ID.Level, t.ID.Index, i)
}

// NodeEdges returns the outgoing edges of the i-th node.
func (t *Tile) NodeEdges(i int) []DirectedEdge {
	n := t.Nodes[i]
	return t.Edges[n.EdgeIndex : n.EdgeIndex+n.EdgeCount]
}

// Validate checks that node edge ranges and stop references stay inside the tile.
func (t *Tile) Validate() error {
	if uint64(len(t.Nodes)) > graphid.MaxID+1 {
		return fmt.Errorf("%w: %d nodes", ErrCorrupt, len(t.Nodes))
	}
	for i, n := range t.Nodes {
		if uint64(n.EdgeIndex)+uint64(n.EdgeCount) > uint64(len(t.Edges)) {
			return fmt.Errorf("%w: node %d edges [%d,+%d) beyond %d edges",
				ErrCorrupt, i, n.EdgeIndex, n.EdgeCount, len(t.Edges))
		}
	}
	for i, s := range t.Stops {
		if uint64(s.Node) >= uint64(len(t.Nodes)) {
			return fmt.Errorf("%w: stop %d references node %d", ErrCorrupt, i, s.Node)
		}
		if len(s.Name) > maxStopName {
			return fmt.Errorf("%w: stop %d name too long", ErrCorrupt, i)
		}
	}
	return nil
}
