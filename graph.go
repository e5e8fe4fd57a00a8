package mccortex

import (
	"log"
)

// NoColour loads a sequence into the graph's edge structure without
// marking any sample colour. The reference is loaded this way: its k-mers
// and edges must exist for breakpoint anchoring, but it is not a sample.
const NoColour = -1

// maxColours is fixed by the one-word colour bitset kept per node.
const maxColours = 64

// A Graph is an in-memory coloured de Bruijn graph. Nodes are canonical
// k-mers addressed by dense uint32 hash keys; each node carries a single
// union edge byte (the colour-0 edges of the original format) and a bitset
// of the sample colours the k-mer was seen in.
//
// Construction is single-threaded. Once breakpoint calling starts the
// graph is read-only and may be shared freely across workers.
type Graph struct {
	kmerSize   int
	numColours int

	keys    map[BinaryKmer]uint32
	bkmers  []BinaryKmer
	edges   []Edges
	colours []uint64
}

// NewGraph creates an empty graph. The k-mer size must be odd and at most
// MaxKmerSize; at most 64 colours are supported.
func NewGraph(kmerSize, numColours int) *Graph {
	validKmerSize(kmerSize)
	if numColours < 1 || numColours > maxColours {
		log.Panicf("Invalid colour count %d: must be in 1..%d.",
			numColours, maxColours)
	}
	return &Graph{
		kmerSize:   kmerSize,
		numColours: numColours,
		keys:       make(map[BinaryKmer]uint32),
	}
}

// KmerSize returns k.
func (g *Graph) KmerSize() int { return g.kmerSize }

// NumColours returns the number of sample colours the graph was created
// with.
func (g *Graph) NumColours() int { return g.numColours }

// NumNodes returns the number of stored canonical k-mers.
func (g *Graph) NumNodes() int { return len(g.bkmers) }

// BKmer returns the stored canonical k-mer for a hash key.
func (g *Graph) BKmer(key uint32) BinaryKmer { return g.bkmers[key] }

// Edges returns the union edge byte for a hash key.
func (g *Graph) Edges(key uint32) Edges { return g.edges[key] }

// HasColour reports whether the k-mer at key was seen in the given sample
// colour.
func (g *Graph) HasColour(key uint32, colour int) bool {
	return g.colours[key]&(1<<uint(colour)) != 0
}

// OrientedBKmer returns the k-mer of a directed node as read in its
// orientation.
func (g *Graph) OrientedBKmer(n Node) BinaryKmer {
	bk := g.bkmers[n.Key]
	if n.Orient == Reverse {
		bk = bk.ReverseComplement(g.kmerSize)
	}
	return bk
}

// Find looks up a (not necessarily canonical) k-mer and returns the
// directed node reading it, or false if the k-mer is not in the graph.
func (g *Graph) Find(bk BinaryKmer) (Node, bool) {
	canon, orient := bk.Canonical(g.kmerSize)
	key, ok := g.keys[canon]
	if !ok {
		return Node{}, false
	}
	return Node{Key: key, Orient: orient}, true
}

func (g *Graph) findOrAdd(canon BinaryKmer) uint32 {
	if key, ok := g.keys[canon]; ok {
		return key
	}
	key := uint32(len(g.bkmers))
	g.keys[canon] = key
	g.bkmers = append(g.bkmers, canon)
	g.edges = append(g.edges, 0)
	g.colours = append(g.colours, 0)
	return key
}

// AddSequence walks residues and adds every k-mer, every consecutive-k-mer
// edge (in both directions), and the given colour bit. Bytes outside
// {A,C,G,T} break the walk: k-mers covering them are skipped, exactly as
// the original treats 'N'. Pass NoColour to add structure without a
// colour.
func (g *Graph) AddSequence(residues []byte, colour int) {
	if colour != NoColour && (colour < 0 || colour >= g.numColours) {
		log.Panicf("Colour %d out of range for graph with %d colours.",
			colour, g.numColours)
	}

	k := g.kmerSize
	var bk BinaryKmer
	run := 0

	// prev* describe the previous position's k-mer, when it was valid.
	var prevKey uint32
	var prevOrient Orientation
	var prevFirst Nucleotide

	for i := 0; i < len(residues); i++ {
		nuc, ok := nucFromByte(residues[i])
		if !ok {
			run = 0
			continue
		}
		bk = bk.Appended(k, nuc)
		run++
		if run < k {
			continue
		}

		canon, orient := bk.Canonical(k)
		key := g.findOrAdd(canon)
		if colour != NoColour {
			g.colours[key] |= 1 << uint(colour)
		}

		if run > k {
			// Edge prev -> cur labelled with cur's last base, plus the
			// reciprocal edge between the reverse complements.
			g.edges[prevKey] = g.edges[prevKey].With(nuc, prevOrient)
			g.edges[key] =
				g.edges[key].With(prevFirst.Complement(), orient.Opposite())
		}

		prevKey, prevOrient = key, orient
		prevFirst = bk.FirstNuc(k)
	}
}

// NextNodes returns the directed successors of a node under the given
// edge byte, along with the base labelling each edge. At most four
// successors exist.
func (g *Graph) NextNodes(n Node, edges Edges) ([]Node, []Nucleotide) {
	oriented := g.OrientedBKmer(n)

	var nodes []Node
	var bases []Nucleotide
	for nuc := NucA; nuc <= NucT; nuc++ {
		if !edges.Has(nuc, n.Orient) {
			continue
		}
		next, ok := g.Find(oriented.Appended(g.kmerSize, nuc))
		if !ok {
			log.Panicf("Edge to a kmer not in the graph (%s + %c).",
				oriented.KmerString(g.kmerSize), nuc.Byte())
		}
		nodes = append(nodes, next)
		bases = append(bases, nuc)
	}
	return nodes, bases
}

// ReverseComplementNodes flips a node buffer in place: reversed order,
// every orientation toggled. The buffer then spells the reverse
// complement of the original walk.
func ReverseComplementNodes(nodes []Node) {
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j].Reverse(), nodes[i].Reverse()
	}
	if len(nodes)%2 == 1 {
		mid := len(nodes) / 2
		nodes[mid] = nodes[mid].Reverse()
	}
}

// IteratePartition visits every hash key congruent to threadID modulo
// nthreads. Distinct thread ids visit disjoint key sets that together
// cover the graph, so workers need no coordination during discovery.
func (g *Graph) IteratePartition(threadID, nthreads int, fn func(key uint32)) {
	for key := threadID; key < len(g.bkmers); key += nthreads {
		fn(uint32(key))
	}
}
