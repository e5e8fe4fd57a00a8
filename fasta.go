package mccortex

import (
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/TuftsBCB/io/fasta"
)

// ReadSeq is the value sent over `chan ReadSeq` when a new sequence is
// read from a fasta file.
type ReadSeq struct {
	Seq *Sequence
	Err error
}

// ReadSequences reads a FASTA formatted file (gzipped or not) and returns
// a channel that each new sequence is sent to.
func ReadSequences(fileName string) (chan ReadSeq, error) {
	var f io.Reader
	var err error

	f, err = os.Open(fileName)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(fileName, ".gz") {
		f, err = gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
	}

	reader := fasta.NewReader(f)
	seqChan := make(chan ReadSeq, 200)
	go func() {
		for i := 0; true; i++ {
			sequence, err := reader.Read()
			if err == io.EOF {
				close(seqChan)
				break
			}
			if err != nil {
				seqChan <- ReadSeq{
					Seq: nil,
					Err: err,
				}
				close(seqChan)
				break
			}
			seqChan <- ReadSeq{
				Seq: NewFastaSequence(i, sequence),
				Err: nil,
			}
		}
	}()
	return seqChan, nil
}

// ReadAllSequences drains ReadSequences into a slice. The breakpoint
// engine indexes whole reference chromosomes, so unlike sample reads they
// are always slurped.
func ReadAllSequences(fileName string) ([]*Sequence, error) {
	seqChan, err := ReadSequences(fileName)
	if err != nil {
		return nil, err
	}

	var seqs []*Sequence
	for readSeq := range seqChan {
		if readSeq.Err != nil {
			return nil, readSeq.Err
		}
		seqs = append(seqs, readSeq.Seq)
	}
	return seqs, nil
}
