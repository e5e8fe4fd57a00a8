package mccortex

import (
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// A pathRefRun locates one 3' path's reference runs inside the shared
// per-thread run buffer.
type pathRefRun struct {
	firstRun int
	numRuns  int
}

// callWriter is the state every worker shares: the gzip stream, the
// output lock serialising whole three-record calls, and the call-id
// counter, which is only ever touched with an atomic fetch-and-add.
type callWriter struct {
	mu     sync.Mutex
	w      io.Writer
	err    error
	callID uint64
}

func (w *callWriter) nextCallID() uint64 {
	return atomic.AddUint64(&w.callID, 1) - 1
}

func (w *callWriter) numCalls() uint64 {
	return atomic.LoadUint64(&w.callID)
}

// writeCall writes one assembled call under the output lock, keeping its
// three records contiguous. After a write error the stream is dead: later
// calls are dropped and the error is reported when the run finishes.
func (w *callWriter) writeCall(record []byte) {
	w.mu.Lock()
	if w.err == nil {
		_, w.err = w.w.Write(record)
	}
	w.mu.Unlock()
}

func (w *callWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// A breakpointCaller is one worker thread's engine instance: borrowed
// references to the shared read-only graph, KOGraph and writer, plus all
// the scratch the crawls need, reset between divergences.
type breakpointCaller struct {
	threadID int
	nthreads int

	graph   *Graph
	kograph *KOGraph

	// One crawler per seed orientation; the opposite one runs the 5'
	// reverse crawl.
	crawlers [2]*GraphCrawler

	nbuf       []Node
	flank5pBuf []Node

	koruns5p      KOccurRunBuffer
	koruns5pEnded KOccurRunBuffer
	koruns3p      KOccurRunBuffer
	koruns3pEnded KOccurRunBuffer
	pathRunBuf    KOccurRunBuffer

	// pathRefs has one slot per colour: a fetch produces at most one
	// distinct path per colour. pathKmers counts the nodes of the 3'
	// walk in flight, giving FilterExtend exact query offsets.
	pathRefs  []pathRefRun
	pathKmers int

	minRefKmers int
	maxRefKmers int

	out *callWriter
}

func newBreakpointCaller(threadID, nthreads int, g *Graph, ko *KOGraph,
	oracle PathOracle, cfg *Config, out *callWriter) *breakpointCaller {

	return &breakpointCaller{
		threadID: threadID,
		nthreads: nthreads,
		graph:    g,
		kograph:  ko,
		crawlers: [2]*GraphCrawler{
			NewGraphCrawler(g, oracle),
			NewGraphCrawler(g, oracle),
		},
		pathRefs:    make([]pathRefRun, g.NumColours()),
		minRefKmers: cfg.MinRefFlank,
		maxRefKmers: cfg.MaxRefFlank,
		out:         out,
	}
}

// CallBreakpoints builds the reference occurrence index, then sweeps the
// whole graph with cfg.NumThreads workers, writing the gzip-compressed
// call stream to out. It returns the number of calls emitted.
//
// The multiset of calls is independent of the thread count; their order
// in the stream is not.
func CallBreakpoints(g *Graph, refs []*Sequence, oracle PathOracle,
	out io.Writer, cfg *Config) (uint64, error) {

	nthreads := cfg.NumThreads
	if nthreads < 1 {
		nthreads = 1
	}

	kograph := BuildKOGraph(g, refs, nthreads)

	gz := gzip.NewWriter(out)
	writer := &callWriter{w: gz}

	log.Printf("Running breakpoint caller with %d thread%s, output to: %s",
		nthreads, pluralStr(nthreads), outPathStr(cfg.OutPath))
	log.Printf("  Finding breakpoints after at least %d kmers (%dbp) of homology",
		cfg.MinRefFlank, cfg.MinRefFlank+g.KmerSize()-1)

	if err := writeBreakpointHeader(gz, cfg, g.KmerSize()); err != nil {
		return 0, err
	}

	var eg errgroup.Group
	for tid := 0; tid < nthreads; tid++ {
		caller := newBreakpointCaller(tid, nthreads, g, kograph,
			oracle, cfg, writer)
		eg.Go(func() error {
			caller.graph.IteratePartition(caller.threadID, caller.nthreads,
				caller.callerNode)
			return nil
		})
	}
	eg.Wait()

	err := writer.firstErr()
	if cerr := gz.Close(); err == nil {
		err = cerr
	}

	log.Printf("  %d calls printed to %s", writer.numCalls(),
		outPathStr(cfg.OutPath))
	return writer.numCalls(), err
}

// callerNode inspects one hash slot: a reference node with more than one
// out-edge in either orientation seeds divergence following.
func (b *breakpointCaller) callerNode(key uint32) {
	b.crawlers[0].Reset()
	b.crawlers[1].Reset()

	if b.kograph.NumOccurs(key) == 0 {
		return
	}
	edges := b.graph.Edges(key)
	if edges.OutDegree(Forward) > 1 {
		b.followBreak(Node{Key: key, Orient: Forward})
	}
	if edges.OutDegree(Reverse) > 1 {
		b.followBreak(Node{Key: key, Orient: Reverse})
	}
}

// followBreak walks away from a divergence, remembering where the walk
// meets the reference again. Paths that never re-meet the reference are
// dropped without a record.
func (b *breakpointCaller) followBreak(node Node) {
	nexts, bases := b.graph.NextNodes(node, b.graph.Edges(node.Key))
	numNext := len(nexts)

	// Keep only the successors that leave the reference.
	nonrefNodes := nexts[:0]
	nonrefBases := bases[:0]
	for i := range nexts {
		if b.kograph.NumOccurs(nexts[i].Key) == 0 {
			nonrefNodes = append(nonrefNodes, nexts[i])
			nonrefBases = append(nonrefBases, bases[i])
		}
	}

	// Abandon if all options are in the ref, or none are.
	if len(nonrefNodes) == 0 || len(nonrefNodes) == numNext {
		return
	}

	fwCrawler := b.crawlers[node.Orient]
	rvCrawler := b.crawlers[node.Orient.Opposite()]

	for i := range nonrefNodes {
		// Go backwards to get the 5' flank, in all colours.
		b.traverse5pFlank(rvCrawler, nonrefNodes[i].Reverse(), node.Reverse())

		for j := 0; j < rvCrawler.NumPaths(); j++ {
			b.flank5pBuf = rvCrawler.PathNodes(j, b.flank5pBuf[:0])
			ReverseComplementNodes(b.flank5pBuf)

			// Check this 5' flank is in the ref.
			b.koruns5p.Reset()
			b.koruns5pEnded.Reset()
			b.kograph.FilterExtend(b.flank5pBuf, true, b.minRefKmers, 0,
				&b.koruns5p, &b.koruns5pEnded)

			b.koruns5p.Runs = filterKoruns(b.koruns5p.Runs[:0],
				b.koruns5p.Runs, b.minRefKmers)
			b.koruns5p.Runs = filterKoruns(b.koruns5p.Runs,
				b.koruns5pEnded.Runs, b.minRefKmers)
			if len(b.koruns5p.Runs) == 0 {
				continue
			}

			// Only traverse in the colours we have a flank for.
			flankPath := rvCrawler.Paths[j]

			b.koruns3p.Reset()
			b.koruns3pEnded.Reset()
			b.pathRunBuf.Reset()

			fwCrawler.Fetch(node, nonrefNodes, nonrefBases, i,
				flankPath.Cols, b.stopAtRefCovg, b.collectRefRuns)

			// Assemble contigs: one per distinct 3' path.
			for pi := 0; pi < fwCrawler.NumPaths(); pi++ {
				b.nbuf = fwCrawler.PathNodes(pi, b.nbuf[:0])
				mcp := fwCrawler.Paths[pi]

				refRun := b.pathRefs[mcp.PathID]
				runs3p := b.pathRunBuf.Runs[refRun.firstRun : refRun.firstRun+refRun.numRuns]
				sort.Slice(runs3p, func(x, y int) bool {
					return runs3p[x].QOffset < runs3p[y].QOffset
				})

				b.processContig(mcp.Cols, b.flank5pBuf, b.nbuf,
					b.koruns5p.Runs, runs3p)
			}
		}
	}
}

// traverse5pFlank crawls backwards from the divergence: reverse the fork
// node and its chosen successor, then fetch the branch leading back along
// the shared sequence, stopping once enough k-mers are gathered to anchor
// a flank.
func (b *breakpointCaller) traverse5pFlank(rv *GraphCrawler,
	node0, node1 Node) {

	nexts, bases := b.graph.NextNodes(node0, b.graph.Edges(node0.Key))
	take := -1
	for i := range nexts {
		if nexts[i] == node1 {
			take = i
			break
		}
	}
	if take < 0 {
		log.Panicf("Missing reciprocal edge during 5' flank traversal.")
	}
	rv.Fetch(node0, nexts, bases, take, nil,
		LimitKmerLen(b.minRefKmers, b.maxRefKmers), nil)
}

// stopAtRefCovg extends the 3' reference runs over the newly explored
// supernode and keeps the walk going until a long-enough run has
// completed, or an open run has already reached the required length.
func (b *breakpointCaller) stopAtRefCovg(cache *GraphCache,
	step *GCacheStep) bool {

	if cache.Path(step.PathID).NumSteps == 1 {
		// First supernode of a fresh walk: run state starts clean.
		b.koruns3p.Reset()
		b.koruns3pEnded.Reset()
		b.pathKmers = 0
	}

	nodes := cache.SnodeNodes(step.Supernode)
	forward := step.Orient == Forward
	b.kograph.FilterExtend(nodes, forward, b.minRefKmers, b.pathKmers,
		&b.koruns3p, &b.koruns3pEnded)
	b.pathKmers += len(nodes)

	maxRefRun := 0
	for _, r := range b.koruns3p.Runs {
		maxRefRun = max(maxRefRun, r.Len())
	}
	return len(b.koruns3pEnded.Runs) == 0 && maxRefRun < b.minRefKmers
}

// collectRefRuns copies a finished 3' path's reference runs (ended runs
// plus still-open runs long enough to count) into the path's slot of the
// shared run buffer.
func (b *breakpointCaller) collectRefRuns(cache *GraphCache, pathid uint32) {
	init := len(b.pathRunBuf.Runs)
	b.pathRunBuf.Runs = append(b.pathRunBuf.Runs, b.koruns3pEnded.Runs...)
	b.pathRunBuf.Runs = filterKoruns(b.pathRunBuf.Runs,
		b.koruns3p.Runs, b.minRefKmers)
	b.pathRefs[pathid] = pathRefRun{
		firstRun: init,
		numRuns:  len(b.pathRunBuf.Runs) - init,
	}
}

// processContig emits one call: 5' flank, 3' flank, connecting path. The
// lowest query offset among the 3' runs decides where the path record
// ends and the 3' flank record begins.
func (b *breakpointCaller) processContig(cols []int, flank5p, nbuf []Node,
	runs5p, runs3p []KOccurRun) {

	// We never re-met the ref.
	if len(runs3p) == 0 {
		return
	}

	kmerSize := b.graph.KmerSize()
	end := runs3p[0].QOffset
	callid := b.out.nextCallID()

	// Swallow up to k-1 path bases into the 3' flank so the flanks
	// overlap the breakpoint's last shared k-mer.
	shift3p := min(kmerSize-1, end)
	end -= shift3p

	var rec []byte
	rec = fmt.Appendf(rec, ">call.%d.5pflank chr=", callid)
	rec = appendRuns(rec, b.kograph, kmerSize, runs5p, 0)
	rec = append(rec, '\n')
	rec = append(rec, NodesSequence(b.graph, flank5p)...)
	rec = append(rec, '\n')

	rec = fmt.Appendf(rec, ">call.%d.3pflank chr=", callid)
	rec = appendRuns(rec, b.kograph, kmerSize, runs3p, end+shift3p)
	rec = append(rec, '\n')
	rec = append(rec, NodesSequenceCont(b.graph, nbuf[end:])...)
	rec = append(rec, '\n')

	rec = fmt.Appendf(rec, ">call.%d.path cols=%d", callid, cols[0])
	for _, c := range cols[1:] {
		rec = fmt.Appendf(rec, ",%d", c)
	}
	rec = append(rec, '\n')
	rec = append(rec, NodesSequenceCont(b.graph, nbuf[:end])...)
	rec = append(rec, "\n\n"...)

	b.out.writeCall(rec)
}

// filterKoruns appends the runs of src spanning at least minKmers k-mers
// to dst. dst may alias src's backing array for in-place filtering.
func filterKoruns(dst, src []KOccurRun, minKmers int) []KOccurRun {
	for _, r := range src {
		if r.Len() >= minKmers {
			dst = append(dst, r)
		}
	}
	return dst
}

func pluralStr(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func outPathStr(path string) string {
	if path == "" || path == "-" {
		return "STDOUT"
	}
	return path
}
