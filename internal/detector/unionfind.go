package detector

// unionFind is a disjoint-set structure over pixel ids with path compression
// and union by size. Pixels are referenced by integer index, never by
// address, so the whole structure lives in two flat arrays.
type unionFind struct {
	parent []uint32
	size   []uint32
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]uint32, n),
		size:   make([]uint32, n),
	}
	for i := range uf.parent {
		uf.parent[i] = uint32(i)
		uf.size[i] = 1
	}
	return uf
}

// find returns the representative of id, compressing the path as it goes.
func (uf *unionFind) find(id uint32) uint32 {
	root := id
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[id] != root {
		next := uf.parent[id]
		uf.parent[id] = root
		id = next
	}
	return root
}

// union merges the sets containing a and b and returns the representative.
func (uf *unionFind) union(a, b uint32) uint32 {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return ra
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return ra
}

// setSize returns the size of the set containing id.
func (uf *unionFind) setSize(id uint32) uint32 {
	return uf.size[uf.find(id)]
}
