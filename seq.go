package mccortex

import (
	"fmt"
	"strings"

	"github.com/TuftsBCB/seq"
)

// Sequence is a named stretch of DNA read from a FASTA file. Residues are
// upper cased on construction; any byte outside {A,C,G,T} (most commonly
// 'N') simply disables the k-mers that cover it.
type Sequence struct {
	Name     string
	Residues []byte
	Id       int
}

// NewSequence creates a new sequence and upper cases the given residues.
func NewSequence(id int, name string, residues []byte) *Sequence {
	return &Sequence{
		Name:     name,
		Residues: []byte(strings.ToUpper(string(residues))),
		Id:       id,
	}
}

// NewFastaSequence creates a new *Sequence value from a TuftsBCB fasta
// record.
func NewFastaSequence(id int, s seq.Sequence) *Sequence {
	residues := make([]byte, len(s.Residues))
	for i, r := range s.Residues {
		residues[i] = byte(r)
	}
	return NewSequence(id, s.Name, residues)
}

// Len returns the number of residues in this sequence.
func (s *Sequence) Len() int {
	return len(s.Residues)
}

// String returns a string (fasta) representation of this sequence.
func (s *Sequence) String() string {
	return fmt.Sprintf("> %s (%d)\n%s", s.Name, s.Id, string(s.Residues))
}

var complements [256]byte

func init() {
	for i := range complements {
		complements[i] = byte(i)
	}
	for from, to := range map[byte]byte{
		'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C',
		'a': 't', 't': 'a', 'c': 'g', 'g': 'c',
	} {
		complements[from] = to
	}
}

// ReverseComplement returns the reverse complement of a DNA string.
// Bytes without a complement ('N' and friends) pass through unchanged.
func ReverseComplement(residues []byte) []byte {
	rc := make([]byte, len(residues))
	for i, b := range residues {
		rc[len(residues)-1-i] = complements[b]
	}
	return rc
}
