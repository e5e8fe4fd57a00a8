package mccortex

import (
	"log"

	"golang.org/x/sync/errgroup"
)

// Strand says which reference strand an occurrence or run agrees with.
type Strand uint8

const (
	StrandPlus Strand = iota
	StrandMinus
)

// Opposite flips a strand.
func (s Strand) Opposite() Strand { return s ^ 1 }

// Char returns '+' or '-'.
func (s Strand) Char() byte {
	if s == StrandMinus {
		return '-'
	}
	return '+'
}

// A KOccur records one place a graph k-mer occurs in the reference:
// chromosome, 0-based offset of the k-mer's first base, and whether the
// reference shows the canonical form (plus) or its reverse complement
// (minus). Repeated k-mers simply have several occurrences.
type KOccur struct {
	Chrom  uint32
	Offset int32
	Strand Strand
}

// A KOccurRun is a maximal co-linear stretch of agreement between a
// walked sequence and the reference. First and Last are the inclusive
// reference offsets of the run's first and last k-mers; on the minus
// strand Last <= First. QOffset is the position along the walked sequence
// at which the run began.
type KOccurRun struct {
	Chrom   uint32
	First   int32
	Last    int32
	QOffset int
	Strand  Strand
}

// Len returns the run length in k-mers.
func (r KOccurRun) Len() int {
	if r.Strand == StrandPlus {
		if r.First > r.Last {
			log.Panicf("Plus-strand run with first %d > last %d.",
				r.First, r.Last)
		}
		return int(r.Last - r.First + 1)
	}
	if r.Last > r.First {
		log.Panicf("Minus-strand run with last %d > first %d.",
			r.Last, r.First)
	}
	return int(r.First - r.Last + 1)
}

// A KOccurRunBuffer is reusable scratch for open or ended runs.
type KOccurRunBuffer struct {
	Runs []KOccurRun
}

func (b *KOccurRunBuffer) Reset() { b.Runs = b.Runs[:0] }

// A KOGraph maps every graph node that appears in the reference to its
// genomic coordinates. It is built once, before calling starts, and
// read-only afterwards. Occurrences live in one flat array partitioned by
// hash key through the offsets index, so lookup is O(1) and the whole
// index is two allocations.
type KOGraph struct {
	kmerSize int
	chroms   []*Sequence
	occurs   []KOccur
	offsets  []uint32
}

type keyedOccur struct {
	key uint32
	occ KOccur
}

// BuildKOGraph indexes the reference sequences against the graph.
// Sequences are scanned in parallel across nthreads workers, each filling
// a private buffer; the buffers are merged into the flat array at the
// end.
func BuildKOGraph(g *Graph, refs []*Sequence, nthreads int) *KOGraph {
	if nthreads < 1 {
		nthreads = 1
	}

	bar := &ProgressBar{Label: "Indexing reference", Total: uint64(len(refs))}
	locals := make([][]keyedOccur, len(refs))

	var eg errgroup.Group
	eg.SetLimit(nthreads)
	for chrom := range refs {
		chrom := chrom
		eg.Go(func() error {
			locals[chrom] = scanRefSeq(g, uint32(chrom), refs[chrom])
			bar.Increment()
			bar.ClearAndDisplay()
			return nil
		})
	}
	// Workers never fail; Wait is only the join point.
	eg.Wait()
	Vprintln("")

	// Counting pass, prefix sums, then placement.
	counts := make([]uint32, g.NumNodes()+1)
	for _, occs := range locals {
		for _, ko := range occs {
			counts[ko.key+1]++
		}
	}
	for i := 1; i < len(counts); i++ {
		counts[i] += counts[i-1]
	}
	offsets := counts

	occurs := make([]KOccur, offsets[len(offsets)-1])
	cursor := make([]uint32, g.NumNodes())
	copy(cursor, offsets[:g.NumNodes()])
	for _, occs := range locals {
		for _, ko := range occs {
			occurs[cursor[ko.key]] = ko.occ
			cursor[ko.key]++
		}
	}

	return &KOGraph{
		kmerSize: g.KmerSize(),
		chroms:   refs,
		occurs:   occurs,
		offsets:  offsets,
	}
}

// scanRefSeq collects the occurrences of one reference sequence. K-mers
// covering a non-ACGT byte are skipped.
func scanRefSeq(g *Graph, chrom uint32, ref *Sequence) []keyedOccur {
	k := g.KmerSize()
	var bk BinaryKmer
	run := 0

	var occs []keyedOccur
	for i := 0; i < len(ref.Residues); i++ {
		nuc, ok := nucFromByte(ref.Residues[i])
		if !ok {
			run = 0
			continue
		}
		bk = bk.Appended(k, nuc)
		run++
		if run < k {
			continue
		}

		node, ok := g.Find(bk)
		if !ok {
			continue
		}
		strand := StrandPlus
		if node.Orient == Reverse {
			strand = StrandMinus
		}
		occs = append(occs, keyedOccur{
			key: node.Key,
			occ: KOccur{
				Chrom:  chrom,
				Offset: int32(i - k + 1),
				Strand: strand,
			},
		})
	}
	return occs
}

// NumOccurs returns how many times the k-mer at key occurs in the
// reference. Zero means the node is not a reference node.
func (ko *KOGraph) NumOccurs(key uint32) int {
	return int(ko.offsets[key+1] - ko.offsets[key])
}

// Occurs returns the occurrence slice for a hash key.
func (ko *KOGraph) Occurs(key uint32) []KOccur {
	return ko.occurs[ko.offsets[key]:ko.offsets[key+1]]
}

// Chrom returns the reference sequence for a chromosome id.
func (ko *KOGraph) Chrom(id uint32) *Sequence {
	return ko.chroms[id]
}

// FilterExtend walks the directed nodes (in array order when forward,
// reversed and orientation-flipped otherwise) and maintains the set of
// open reference runs in active. A run stays open exactly while the next
// walked k-mer occurs at the next co-linear reference position on the
// run's strand; a run that closes moves to ended if it spans at least
// minRunKmers k-mers and is dropped otherwise. Occurrences that extend no
// run seed new runs at qoffsetBase plus the walk position. Runs still
// open after the last node remain in active for a later call.
func (ko *KOGraph) FilterExtend(nodes []Node, forward bool,
	minRunKmers, qoffsetBase int,
	active, ended *KOccurRunBuffer) {

	n := len(nodes)
	for pos := 0; pos < n; pos++ {
		node := nodes[pos]
		if !forward {
			node = nodes[n-1-pos].Reverse()
		}
		occs := ko.Occurs(node.Key)
		used := make([]bool, len(occs))

		kept := active.Runs[:0]
		for _, run := range active.Runs {
			step := int32(1)
			if run.Strand == StrandMinus {
				step = -1
			}
			extended := false
			for oi, occ := range occs {
				if occ.Chrom != run.Chrom ||
					occStrand(occ, node.Orient) != run.Strand {
					continue
				}
				if occ.Offset == run.Last+step {
					run.Last = occ.Offset
					used[oi] = true
					extended = true
					break
				}
			}
			if extended {
				kept = append(kept, run)
			} else if run.Len() >= minRunKmers {
				ended.Runs = append(ended.Runs, run)
			}
		}
		active.Runs = kept

		for oi, occ := range occs {
			if used[oi] {
				continue
			}
			active.Runs = append(active.Runs, KOccurRun{
				Chrom:   occ.Chrom,
				First:   occ.Offset,
				Last:    occ.Offset,
				QOffset: qoffsetBase + pos,
				Strand:  occStrand(occ, node.Orient),
			})
		}
	}
}

// occStrand is the strand an occurrence matches when its node is read in
// the given orientation.
func occStrand(occ KOccur, orient Orientation) Strand {
	if orient == Reverse {
		return occ.Strand.Opposite()
	}
	return occ.Strand
}
