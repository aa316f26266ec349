package graph

import "testing"

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	// Initially all separate.
	for i := range uint32(5) {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}

	// Union 0 and 1.
	uf.Union(0, 1)
	if uf.Find(0) != uf.Find(1) {
		t.Error("0 and 1 should be in same set")
	}

	// Union 2 and 3.
	uf.Union(2, 3)
	if uf.Find(2) != uf.Find(3) {
		t.Error("2 and 3 should be in same set")
	}

	// 0 and 2 should be different.
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}

	// Union the two groups.
	uf.Union(1, 3)
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
}

// adjList is a tiny undirected adjacency list for exercising Components.
type adjList [][]uint32

func (a adjList) edgesFrom(u uint32, yield func(v uint32)) {
	for _, v := range a[u] {
		yield(v)
	}
}

func TestComponentsAndLargestComponent(t *testing.T) {
	// Nodes 0,1,2 form a triangle; nodes 3,4 form a separate pair.
	adj := adjList{
		0: {1, 2},
		1: {0, 2},
		2: {0, 1},
		3: {4},
		4: {3},
	}

	uf := Components(5, adj.edgesFrom)

	if uf.Find(0) != uf.Find(1) || uf.Find(1) != uf.Find(2) {
		t.Error("0, 1, 2 should be in the same component")
	}
	if uf.Find(3) != uf.Find(4) {
		t.Error("3 and 4 should be in the same component")
	}
	if uf.Find(0) == uf.Find(3) {
		t.Error("{0,1,2} and {3,4} should be different components")
	}

	largest := LargestComponent(uf, 5)
	if len(largest) != 3 {
		t.Fatalf("LargestComponent has %d nodes, want 3", len(largest))
	}
}

func TestLargestComponentEmpty(t *testing.T) {
	uf := NewUnionFind(0)
	nodes := LargestComponent(uf, 0)
	if nodes != nil {
		t.Errorf("expected nil for empty graph, got %v", nodes)
	}
}
