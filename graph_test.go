package mccortex

import (
	"testing"
)

// findNode fails the test unless the k-mer is in the graph.
func findNode(t *testing.T, g *Graph, kmer string) Node {
	t.Helper()
	bk, ok := PackKmer([]byte(kmer))
	if !ok {
		t.Fatalf("bad test kmer %s", kmer)
	}
	node, ok := g.Find(bk)
	if !ok {
		t.Fatalf("kmer %s not in graph", kmer)
	}
	return node
}

func TestGraphAddSequence(t *testing.T) {
	g := NewGraph(3, 2)
	g.AddSequence([]byte("ACGGT"), 0)

	// Windows: ACG (canonical), CGG (canonical CCG), GGT (canonical ACC).
	if g.NumNodes() != 3 {
		t.Fatalf("NumNodes = %d, want 3", g.NumNodes())
	}

	acg := findNode(t, g, "ACG")
	if acg.Orient != Forward {
		t.Fatal("ACG should be stored in its own orientation")
	}
	cgg := findNode(t, g, "CGG")
	if cgg.Orient != Reverse {
		t.Fatal("CGG should be the reverse reading of stored CCG")
	}

	if !g.HasColour(acg.Key, 0) || g.HasColour(acg.Key, 1) {
		t.Fatal("colour bits wrong after AddSequence(colour 0)")
	}
}

func TestGraphNextNodesFollowSequence(t *testing.T) {
	const seq = "ACGGT"
	g := NewGraph(3, 1)
	g.AddSequence([]byte(seq), 0)

	node := findNode(t, g, seq[:3])
	walk := []Node{node}
	for {
		nexts, bases := g.NextNodes(node, g.Edges(node.Key))
		if len(nexts) == 0 {
			break
		}
		if len(nexts) != 1 {
			t.Fatalf("linear sequence produced %d successors", len(nexts))
		}
		if len(bases) != 1 {
			t.Fatalf("bases out of sync with nodes")
		}
		node = nexts[0]
		walk = append(walk, node)
	}

	if got := string(NodesSequence(g, walk)); got != seq {
		t.Fatalf("walk spelled %s, want %s", got, seq)
	}
}

func TestGraphNoColourSequence(t *testing.T) {
	g := NewGraph(3, 1)
	g.AddSequence([]byte("ACGGT"), NoColour)

	node := findNode(t, g, "ACG")
	if g.HasColour(node.Key, 0) {
		t.Fatal("NoColour sequence set a colour bit")
	}
	// Structure still exists.
	nexts, _ := g.NextNodes(node, g.Edges(node.Key))
	if len(nexts) != 1 {
		t.Fatalf("edges missing for NoColour sequence")
	}
}

func TestGraphSkipsN(t *testing.T) {
	g := NewGraph(3, 1)
	g.AddSequence([]byte("ACGNGGT"), 0)

	// Only ACG and GGT survive; every window covering the N is skipped,
	// and no edge joins the two sides.
	if g.NumNodes() != 2 {
		t.Fatalf("NumNodes = %d, want 2", g.NumNodes())
	}
	acg := findNode(t, g, "ACG")
	nexts, _ := g.NextNodes(acg, g.Edges(acg.Key))
	if len(nexts) != 0 {
		t.Fatal("an edge crossed the N break")
	}
}

func TestIteratePartitionDisjointCover(t *testing.T) {
	g := NewGraph(5, 1)
	g.AddSequence([]byte("ACACGGTTACGGATCCGATT"), 0)

	const nthreads = 3
	seen := make(map[uint32]int)
	for tid := 0; tid < nthreads; tid++ {
		g.IteratePartition(tid, nthreads, func(key uint32) {
			seen[key]++
		})
	}

	if len(seen) != g.NumNodes() {
		t.Fatalf("partitions visited %d keys, graph has %d",
			len(seen), g.NumNodes())
	}
	for key, n := range seen {
		if n != 1 {
			t.Fatalf("key %d visited %d times", key, n)
		}
	}
}

func TestReverseComplementNodes(t *testing.T) {
	const seq = "ACGGTCA"
	g := NewGraph(3, 1)
	g.AddSequence([]byte(seq), 0)

	node := findNode(t, g, seq[:3])
	walk := []Node{node}
	for {
		nexts, _ := g.NextNodes(node, g.Edges(node.Key))
		if len(nexts) != 1 {
			break
		}
		node = nexts[0]
		walk = append(walk, node)
	}

	ReverseComplementNodes(walk)
	want := string(ReverseComplement([]byte(seq)))
	if got := string(NodesSequence(g, walk)); got != want {
		t.Fatalf("reversed walk spelled %s, want %s", got, want)
	}
}
