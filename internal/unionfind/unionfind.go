// Package unionfind implements a disjoint-set forest over dense integer ids.
package unionfind

// Forest is a disjoint-set forest with union by size and path halving.
// It is not safe for concurrent use.
type Forest struct {
	parent []uint32
	size   []uint32
	sets   int
}

// New returns a forest of n singleton sets {0}, {1}, ..., {n-1}.
func New(n int) *Forest {
	f := &Forest{
		parent: make([]uint32, n),
		size:   make([]uint32, n),
		sets:   n,
	}
	for i := range f.parent {
		f.parent[i] = uint32(i)
		f.size[i] = 1
	}
	return f
}

// Len returns the number of elements.
func (f *Forest) Len() int { return len(f.parent) }

// Sets returns the current number of disjoint sets.
func (f *Forest) Sets() int { return f.sets }

// Find returns the representative of x's set.
func (f *Forest) Find(x uint32) uint32 {
	for f.parent[x] != x {
		f.parent[x] = f.parent[f.parent[x]]
		x = f.parent[x]
	}
	return x
}

// Union merges the sets of a and b. It reports whether they were distinct.
func (f *Forest) Union(a, b uint32) bool {
	ra, rb := f.Find(a), f.Find(b)
	if ra == rb {
		return false
	}
	if f.size[ra] < f.size[rb] {
		ra, rb = rb, ra
	}
	f.parent[rb] = ra
	f.size[ra] += f.size[rb]
	f.sets--
	return true
}

// Same reports whether a and b are in the same set.
func (f *Forest) Same(a, b uint32) bool {
	return f.Find(a) == f.Find(b)
}

// Labels assigns every element a dense label in [0, Sets()). Labels are handed
// out in order of first encounter when scanning elements 0..n-1, so element 0
// always gets label 0. It also returns the size of each labeled set.
func (f *Forest) Labels() (labels []uint32, sizes []uint32) {
	const unset = ^uint32(0)

	byRoot := make([]uint32, len(f.parent))
	for i := range byRoot {
		byRoot[i] = unset
	}

	labels = make([]uint32, len(f.parent))
	sizes = make([]uint32, 0, f.sets)
	for i := range f.parent {
		root := f.Find(uint32(i))
		if byRoot[root] == unset {
			byRoot[root] = uint32(len(sizes))
			sizes = append(sizes, f.size[root])
		}
		labels[i] = byRoot[root]
	}
	return labels, sizes
}
