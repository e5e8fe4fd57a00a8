package mccortex

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Version is recorded in the output header's ctxVersion line.
const Version = "mccortex-go 0.1.0"

// BreakpointFileFormat names the call-stream format this engine writes.
const BreakpointFileFormat = "CtxBreakpointsv0.1"

// NodesSequence renders a walk as DNA: the first node's full k-mer, then
// one base per following node.
func NodesSequence(g *Graph, nodes []Node) []byte {
	if len(nodes) == 0 {
		return nil
	}
	seq := g.OrientedBKmer(nodes[0]).AppendBytes(nil, g.KmerSize())
	for _, n := range nodes[1:] {
		seq = append(seq, g.OrientedBKmer(n).LastNuc().Byte())
	}
	return seq
}

// NodesSequenceCont renders a walk as a continuation: one base per node,
// the leading k-1 bases assumed already printed by an adjacent record.
func NodesSequenceCont(g *Graph, nodes []Node) []byte {
	seq := make([]byte, 0, len(nodes))
	for _, n := range nodes {
		seq = append(seq, g.OrientedBKmer(n).LastNuc().Byte())
	}
	return seq
}

// appendRun formats one reference run as chrom:start-end:strand:qoffset.
// Coordinates are 1-based inclusive and name whole k-mers, so the end
// coordinate absorbs the trailing k-1 bases; start > end on the minus
// strand. The query offset is made relative to contigStart, the offset of
// the local record's first k-mer.
func appendRun(dst []byte, ko *KOGraph, kmerSize int,
	run KOccurRun, contigStart int) []byte {

	var start, end int32
	if run.Strand == StrandPlus {
		start = run.First
		end = run.Last + int32(kmerSize) - 1
	} else {
		start = run.First + int32(kmerSize) - 1
		end = run.Last
	}
	qoffset := run.QOffset - contigStart
	return fmt.Appendf(dst, "%s:%d-%d:%c:%d",
		ko.Chrom(run.Chrom).Name, start+1, end+1,
		run.Strand.Char(), qoffset+1)
}

// appendRuns comma-joins a run list.
func appendRuns(dst []byte, ko *KOGraph, kmerSize int,
	runs []KOccurRun, contigStart int) []byte {

	for i, run := range runs {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendRun(dst, ko, kmerSize, run, contigStart)
	}
	return dst
}

// writeBreakpointHeader emits the ## metadata block at the top of the
// call stream.
func writeBreakpointHeader(w io.Writer, cfg *Config, kmerSize int) error {
	var b strings.Builder

	fmt.Fprintf(&b, "##fileFormat=%s\n", BreakpointFileFormat)
	fmt.Fprintf(&b, "##fileDate=%s\n", time.Now().Format("20060102"))
	fmt.Fprintf(&b, "##cmd=\"%s\"\n", cfg.CommandLine)
	if wkdir, err := os.Getwd(); err == nil {
		fmt.Fprintf(&b, "##wkdir=%s\n", wkdir)
	}
	if len(cfg.SeqPaths) > 0 {
		fmt.Fprintf(&b, "##reference=%s\n", strings.Join(cfg.SeqPaths, ":"))
	}
	fmt.Fprintf(&b, "##ctxVersion=\"%s\"\n", Version)
	fmt.Fprintf(&b, "##ctxKmerSize=%d\n", kmerSize)

	_, err := io.WriteString(w, b.String())
	return err
}
