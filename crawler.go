package mccortex

// A MultiColPath is one distinct traversal outcome of a fetch, together
// with every colour that walked it.
type MultiColPath struct {
	PathID uint32
	Cols   []int
}

// A ContinueFunc is consulted after each supernode step; returning false
// stops that path without affecting its siblings.
type ContinueFunc func(cache *GraphCache, step *GCacheStep) bool

// A FinishFunc is invoked exactly once per distinct path when it
// finalises.
type FinishFunc func(cache *GraphCache, pathid uint32)

// A GraphCrawler explores, one colour at a time, the paths leading out of
// a chosen fork branch. Walks step supernode-by-supernode through the
// crawler's cache; colours whose walks produce identical step sequences
// are merged into a single MultiColPath. Every Fetch finishes every path
// it starts.
type GraphCrawler struct {
	Cache *GraphCache
	Paths []MultiColPath

	graph   *Graph
	oracle  PathOracle
	visited map[snodeRef]bool
}

func NewGraphCrawler(g *Graph, oracle PathOracle) *GraphCrawler {
	if oracle == nil {
		oracle = NoLinks
	}
	return &GraphCrawler{
		Cache:   NewGraphCache(g),
		graph:   g,
		oracle:  oracle,
		visited: make(map[snodeRef]bool),
	}
}

// Reset empties the cache. Called once per seed node; fetches from the
// same seed share interned supernodes.
func (cr *GraphCrawler) Reset() {
	cr.Cache.Reset()
	cr.Paths = cr.Paths[:0]
}

// NumPaths is the number of distinct paths the last Fetch produced.
func (cr *GraphCrawler) NumPaths() int { return len(cr.Paths) }

// PathNodes appends the node list of distinct path i to buf.
func (cr *GraphCrawler) PathNodes(i int, buf []Node) []Node {
	return cr.Cache.PathNodes(cr.Paths[i].PathID, buf)
}

// Fetch explores branch nexts[take] out of node0 for every colour in cols
// (nil means all graph colours). Each admitted colour walks supernodes
// until contFn stops it, the graph dead-ends, a branch cannot be resolved
// through colour bits and the link oracle, or the walk re-enters a
// supernode in an orientation it already used (a cycle); re-entering a
// supernode in the other orientation does not stop it. finishFn fires
// once per distinct finished path; a colour whose walk duplicates an
// earlier path is merged into it instead.
func (cr *GraphCrawler) Fetch(node0 Node, nexts []Node, bases []Nucleotide,
	take int, cols []int, contFn ContinueFunc, finishFn FinishFunc) {

	cr.Cache.ResetPaths()
	cr.Paths = cr.Paths[:0]

	walkCols := cols
	if walkCols == nil {
		walkCols = make([]int, cr.graph.NumColours())
		for c := range walkCols {
			walkCols[c] = c
		}
	}

	for _, colour := range walkCols {
		if !cr.graph.HasColour(node0.Key, colour) ||
			!cr.graph.HasColour(nexts[take].Key, colour) {
			continue
		}
		pathid := cr.walk(nexts[take], colour, contFn)

		merged := false
		for pi := range cr.Paths {
			if cr.stepsEqual(cr.Paths[pi].PathID, pathid) {
				cr.Paths[pi].Cols = append(cr.Paths[pi].Cols, colour)
				cr.Cache.DropLastPath()
				merged = true
				break
			}
		}
		if !merged {
			cr.Paths = append(cr.Paths, MultiColPath{
				PathID: pathid,
				Cols:   []int{colour},
			})
			if finishFn != nil {
				finishFn(cr.Cache, pathid)
			}
		}
	}
}

// walk runs one colour from its entry node to wherever it stops, and
// returns the id of the path it built.
func (cr *GraphCrawler) walk(entry Node, colour int,
	contFn ContinueFunc) uint32 {

	cache := cr.Cache
	pathid := cache.NewPath()
	clear(cr.visited)

	cur := entry
	for {
		snid, orient := cache.FindOrCreateSupernode(cur)
		ref := snodeRef{id: snid, orient: orient}
		if cr.visited[ref] {
			break
		}
		cr.visited[ref] = true

		step := cache.PushStep(pathid, snid, orient)
		if contFn != nil && !contFn(cache, step) {
			break
		}

		next, ok := cr.chooseNext(cache.StepEndNode(step), colour)
		if !ok {
			break
		}
		cur = next
	}
	return pathid
}

// chooseNext picks the successor a colour follows from the end of a
// supernode: the graph's edges filtered to the colour, then, if still
// ambiguous, filtered by the link oracle. No unique choice means the walk
// ends here.
func (cr *GraphCrawler) chooseNext(end Node, colour int) (Node, bool) {
	nexts, bases := cr.graph.NextNodes(end, cr.graph.Edges(end.Key))

	var cands []int
	for i := range nexts {
		if cr.graph.HasColour(nexts[i].Key, colour) {
			cands = append(cands, i)
		}
	}
	if len(cands) == 0 {
		return Node{}, false
	}
	if len(cands) == 1 {
		return nexts[cands[0]], true
	}

	allowed := cr.oracle.AllowedBases(end, colour)
	if len(allowed) == 0 {
		return Node{}, false
	}
	var chosen []int
	for _, i := range cands {
		for _, nuc := range allowed {
			if bases[i] == nuc {
				chosen = append(chosen, i)
				break
			}
		}
	}
	if len(chosen) != 1 {
		return Node{}, false
	}
	return nexts[chosen[0]], true
}

func (cr *GraphCrawler) stepsEqual(a, b uint32) bool {
	sa, sb := cr.Cache.PathSteps(a), cr.Cache.PathSteps(b)
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i].Supernode != sb[i].Supernode ||
			sa[i].Orient != sb[i].Orient {
			return false
		}
	}
	return true
}

// LimitKmerLen builds a ContinueFunc that stops a path once it has
// gathered at least minKmers nodes, with a hard cap of maxKmers. The 5'
// reverse crawl uses it to collect just enough flank to anchor in the
// reference.
func LimitKmerLen(minKmers, maxKmers int) ContinueFunc {
	return func(cache *GraphCache, step *GCacheStep) bool {
		n := cache.PathNumKmers(step.PathID)
		return n < minKmers && n < maxKmers
	}
}
