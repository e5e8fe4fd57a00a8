package mccortex

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// refWalkNodes resolves every window of seq to its directed graph node.
func refWalkNodes(t *testing.T, g *Graph, seq []byte) []Node {
	t.Helper()
	var nodes []Node
	for i := 0; i+g.KmerSize() <= len(seq); i++ {
		nodes = append(nodes, findNode(t, g, string(seq[i:i+g.KmerSize()])))
	}
	return nodes
}

func TestKOGraphOccurrences(t *testing.T) {
	segs := genSegments(t, 20, testK, []int{40}, nil)
	seq := segs[0]
	ref := NewSequence(0, "ref1", seq)
	g := buildGraph(testK, []*Sequence{ref}, seq)

	ko := BuildKOGraph(g, []*Sequence{ref}, 2)

	for i := 0; i+testK <= len(seq); i++ {
		node := findNode(t, g, string(seq[i:i+testK]))
		require.Equal(t, 1, ko.NumOccurs(node.Key))
		occ := ko.Occurs(node.Key)[0]
		require.Equal(t, uint32(0), occ.Chrom)
		require.EqualValues(t, i, occ.Offset)
		require.Equal(t, StrandPlus, occ.Strand)
	}
	require.Equal(t, "ref1", ko.Chrom(0).Name)
}

func TestKOGraphMinusStrandOccurrences(t *testing.T) {
	segs := genSegments(t, 21, testK, []int{30}, nil)
	seq := segs[0]

	// The reference carries the reverse complement: every occurrence
	// shows the non-canonical form, i.e. the minus strand.
	ref := NewSequence(0, "ref1", ReverseComplement(seq))
	g := buildGraph(testK, []*Sequence{ref}, seq)
	ko := BuildKOGraph(g, []*Sequence{ref}, 1)

	numWindows := len(seq) - testK + 1
	for i := 0; i+testK <= len(seq); i++ {
		node := findNode(t, g, string(seq[i:i+testK]))
		require.Equal(t, 1, ko.NumOccurs(node.Key))
		occ := ko.Occurs(node.Key)[0]
		require.EqualValues(t, numWindows-1-i, occ.Offset)
		require.Equal(t, StrandMinus, occ.Strand)
	}
}

func TestKOGraphFilterExtendWholeWalk(t *testing.T) {
	segs := genSegments(t, 22, testK, []int{40}, nil)
	seq := segs[0]
	ref := NewSequence(0, "ref1", seq)
	g := buildGraph(testK, []*Sequence{ref}, seq)
	ko := BuildKOGraph(g, []*Sequence{ref}, 1)

	nodes := refWalkNodes(t, g, seq)
	numWindows := len(nodes)

	var active, ended KOccurRunBuffer
	ko.FilterExtend(nodes, true, 3, 0, &active, &ended)

	require.Empty(t, ended.Runs)
	require.Len(t, active.Runs, 1)
	run := active.Runs[0]
	require.Equal(t, StrandPlus, run.Strand)
	require.EqualValues(t, 0, run.First)
	require.EqualValues(t, numWindows-1, run.Last)
	require.Equal(t, 0, run.QOffset)
	require.Equal(t, numWindows, run.Len())

	// The same node array walked in reverse matches the minus strand.
	active.Reset()
	ended.Reset()
	ko.FilterExtend(nodes, false, 3, 0, &active, &ended)

	require.Empty(t, ended.Runs)
	require.Len(t, active.Runs, 1)
	run = active.Runs[0]
	require.Equal(t, StrandMinus, run.Strand)
	require.EqualValues(t, numWindows-1, run.First)
	require.EqualValues(t, 0, run.Last)
	require.Equal(t, numWindows, run.Len())
}

func TestKOGraphFilterExtendRunBreak(t *testing.T) {
	segs := genSegments(t, 23, testK, []int{40}, nil)
	seq := segs[0]
	ref := NewSequence(0, "ref1", seq)
	g := buildGraph(testK, []*Sequence{ref}, seq)
	ko := BuildKOGraph(g, []*Sequence{ref}, 1)

	walk := refWalkNodes(t, g, seq)

	// Jump from offset 5 to offset 10: the first run closes, a new one
	// seeds at walk position 6.
	nodes := append(append([]Node{}, walk[:6]...), walk[10:16]...)

	var active, ended KOccurRunBuffer
	ko.FilterExtend(nodes, true, 3, 0, &active, &ended)

	require.Len(t, ended.Runs, 1)
	require.EqualValues(t, 0, ended.Runs[0].First)
	require.EqualValues(t, 5, ended.Runs[0].Last)
	require.Equal(t, 0, ended.Runs[0].QOffset)

	require.Len(t, active.Runs, 1)
	require.EqualValues(t, 10, active.Runs[0].First)
	require.EqualValues(t, 15, active.Runs[0].Last)
	require.Equal(t, 6, active.Runs[0].QOffset)
}

func TestKOGraphFilterExtendDropsShortRuns(t *testing.T) {
	segs := genSegments(t, 24, testK, []int{40}, nil)
	seq := segs[0]
	ref := NewSequence(0, "ref1", seq)
	g := buildGraph(testK, []*Sequence{ref}, seq)
	ko := BuildKOGraph(g, []*Sequence{ref}, 1)

	walk := refWalkNodes(t, g, seq)

	// A two-kmer stretch below the minimum closes silently.
	nodes := append(append([]Node{}, walk[:2]...), walk[10:16]...)

	var active, ended KOccurRunBuffer
	ko.FilterExtend(nodes, true, 3, 0, &active, &ended)

	require.Empty(t, ended.Runs)
	require.Len(t, active.Runs, 1)
	require.EqualValues(t, 10, active.Runs[0].First)
}

func TestKOGraphFilterExtendIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(testK+5, 60).Draw(rt, "len")
		seq := rapid.SliceOfN(
			rapid.SampledFrom([]byte("AC")), n, n).Draw(rt, "seq")

		ref := NewSequence(0, "ref1", seq)
		g := buildGraph(testK, []*Sequence{ref}, seq)
		ko := BuildKOGraph(g, []*Sequence{ref}, 1)

		var nodes []Node
		for i := 0; i+testK <= len(seq); i++ {
			bk, _ := PackKmer(seq[i : i+testK])
			node, ok := g.Find(bk)
			if !ok {
				rt.Fatalf("window missing from graph")
			}
			nodes = append(nodes, node)
		}

		var active1, ended1, active2, ended2 KOccurRunBuffer
		ko.FilterExtend(nodes, true, 3, 0, &active1, &ended1)
		ko.FilterExtend(nodes, true, 3, 0, &active2, &ended2)

		require.Equal(rt, active1.Runs, active2.Runs)
		require.Equal(rt, ended1.Runs, ended2.Runs)
	})
}
