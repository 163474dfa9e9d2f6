package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/tileconn/graphid"
	"github.com/hupe1980/tileconn/hierarchy"
)

// RNG is a seeded random source for reproducible networks.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Network creates a network with links random directed links between tiles of
// level. About a fifth of the remaining tiles are added without edges, the
// rest stay absent.
func (r *RNG) Network(h *hierarchy.Hierarchy, level uint8, links int) *Network {
	n := NewNetwork(h)
	lvl, ok := h.Level(level)
	if !ok {
		return n
	}
	count := lvl.Grid.TileCount()
	for range links {
		a := graphid.TileID{Level: level, Index: uint32(r.Intn(count))}
		b := graphid.TileID{Level: level, Index: uint32(r.Intn(count))}
		n.Link(a, b)
	}
	for i := range count {
		if r.Float64() < 0.2 {
			n.Add(graphid.TileID{Level: level, Index: uint32(i)})
		}
	}
	return n
}
