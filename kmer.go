package mccortex

import (
	"log"
	"math/bits"
)

// MaxKmerSize is the largest supported k-mer size. K-mers are packed two
// bits per base into a single word, and odd sizes are required so that no
// k-mer can be its own reverse complement.
const MaxKmerSize = 31

// A Nucleotide is one of the four DNA bases, numbered so that the
// complement of n is always 3-n.
type Nucleotide uint8

const (
	NucA Nucleotide = iota
	NucC
	NucG
	NucT
)

var nucBytes = [4]byte{'A', 'C', 'G', 'T'}

// Complement returns the Watson-Crick complement of a base.
func (n Nucleotide) Complement() Nucleotide {
	return 3 - n
}

// Byte returns the upper case ASCII letter for a base.
func (n Nucleotide) Byte() byte {
	return nucBytes[n]
}

// nucFromByte converts an ASCII base (either case) to a Nucleotide.
// Any other byte, including 'N', reports false.
func nucFromByte(b byte) (Nucleotide, bool) {
	switch b {
	case 'A', 'a':
		return NucA, true
	case 'C', 'c':
		return NucC, true
	case 'G', 'g':
		return NucG, true
	case 'T', 't':
		return NucT, true
	}
	return 0, false
}

// An Orientation names the direction a k-mer is read in: Forward is the
// stored (canonical) form, Reverse is its reverse complement.
type Orientation uint8

const (
	Forward Orientation = iota
	Reverse
)

// Opposite flips an orientation.
func (o Orientation) Opposite() Orientation {
	return o ^ 1
}

// A BinaryKmer is a k-mer packed two bits per base, first base in the most
// significant occupied bits. Packing preserves order: for fixed k,
// comparing two BinaryKmers numerically compares the k-mers
// lexicographically.
type BinaryKmer uint64

func kmerMask(k int) BinaryKmer {
	return (1 << (2 * uint(k))) - 1
}

// PackKmer packs seq into a BinaryKmer. The second return value is false
// if seq contains a byte that is not an A, C, G or T.
func PackKmer(seq []byte) (BinaryKmer, bool) {
	var bk BinaryKmer
	for _, b := range seq {
		nuc, ok := nucFromByte(b)
		if !ok {
			return 0, false
		}
		bk = (bk << 2) | BinaryKmer(nuc)
	}
	return bk, true
}

// Appended shifts the k-mer one base left and appends nuc, producing the
// successor k-mer along a walk.
func (bk BinaryKmer) Appended(k int, nuc Nucleotide) BinaryKmer {
	return ((bk << 2) | BinaryKmer(nuc)) & kmerMask(k)
}

// Prepended shifts the k-mer one base right and prepends nuc, producing
// the predecessor k-mer along a walk.
func (bk BinaryKmer) Prepended(k int, nuc Nucleotide) BinaryKmer {
	return (bk >> 2) | (BinaryKmer(nuc) << (2 * uint(k-1)))
}

// FirstNuc returns the leftmost base of a k-mer of size k.
func (bk BinaryKmer) FirstNuc(k int) Nucleotide {
	return Nucleotide(bk>>(2*uint(k-1))) & 3
}

// LastNuc returns the rightmost base.
func (bk BinaryKmer) LastNuc() Nucleotide {
	return Nucleotide(bk & 3)
}

// ReverseComplement returns the reverse complement of a k-mer of size k.
//
// ReverseComplement satisfies this law:
// Forall b, b.ReverseComplement(k).ReverseComplement(k) == b.
func (bk BinaryKmer) ReverseComplement(k int) BinaryKmer {
	var rc BinaryKmer
	for i := 0; i < k; i++ {
		rc = (rc << 2) | (3 - (bk & 3))
		bk >>= 2
	}
	return rc
}

// Canonical returns the lexicographically smaller of the k-mer and its
// reverse complement, together with the orientation of the argument
// relative to that canonical form.
func (bk BinaryKmer) Canonical(k int) (BinaryKmer, Orientation) {
	rc := bk.ReverseComplement(k)
	if rc < bk {
		return rc, Reverse
	}
	return bk, Forward
}

// AppendBytes appends the ASCII form of a k-mer of size k to dst.
func (bk BinaryKmer) AppendBytes(dst []byte, k int) []byte {
	for i := k - 1; i >= 0; i-- {
		dst = append(dst, Nucleotide(bk>>(2*uint(i))&3).Byte())
	}
	return dst
}

// KmerString renders a k-mer of size k as ASCII bases.
func (bk BinaryKmer) KmerString(k int) string {
	return string(bk.AppendBytes(nil, k))
}

// A Node is a directed graph node: a hash key naming a stored canonical
// k-mer, plus the orientation it is being read in.
type Node struct {
	Key    uint32
	Orient Orientation
}

// Reverse flips the node's orientation, yielding the reverse-complement
// k-mer.
func (n Node) Reverse() Node {
	return Node{Key: n.Key, Orient: n.Orient.Opposite()}
}

// Edges is the 8-bit edge set of a stored k-mer: one nibble of outgoing
// base bits per orientation.
type Edges uint8

// Has reports whether the edge labelled nuc exists in orientation orient.
func (e Edges) Has(nuc Nucleotide, orient Orientation) bool {
	return e&(1<<(uint(orient)*4+uint(nuc))) != 0
}

// With returns the edge set with the edge labelled nuc added in
// orientation orient.
func (e Edges) With(nuc Nucleotide, orient Orientation) Edges {
	return e | 1<<(uint(orient)*4+uint(nuc))
}

// OutDegree counts the outgoing edges in the given orientation.
func (e Edges) OutDegree(orient Orientation) int {
	return bits.OnesCount8(uint8(e>>(uint(orient)*4)) & 0xf)
}

// validKmerSize panics unless k is odd and within the packed-word limit.
// Odd sizes rule out palindromic k-mers, which would otherwise occupy both
// orientations of one node at once.
func validKmerSize(k int) {
	if k < 3 || k > MaxKmerSize || k%2 == 0 {
		log.Panicf("Invalid kmer size %d: must be odd and in 3..%d.",
			k, MaxKmerSize)
	}
}
