package mccortex

// A GCacheSnode is a cached supernode: a maximal chain of nodes with one
// way in and one way out, stored once in the nodes arena.
type GCacheSnode struct {
	FirstNode uint32
	NumNodes  uint32
}

// A GCacheStep is one hop of a path: which supernode, read in which
// orientation, belonging to which path.
type GCacheStep struct {
	Supernode uint32
	Orient    Orientation
	PathID    uint32
}

// A GCachePath is a window over the steps arena.
type GCachePath struct {
	FirstStep uint32
	NumSteps  uint32
}

type snodeRef struct {
	id     uint32
	orient Orientation
}

// A GraphCache stores the supernodes and paths one crawler has explored.
// Everything lives in growable arenas addressed by 32-bit indices;
// resetting truncates the arenas instead of freeing them. Supernodes are
// interned by entry node, with the far end registered as the Reverse
// entry, so two steps entering the same supernode share one record.
type GraphCache struct {
	graph *Graph

	nodes  []Node
	snodes []GCacheSnode
	steps  []GCacheStep
	paths  []GCachePath
	index  map[Node]snodeRef
}

func NewGraphCache(g *Graph) *GraphCache {
	return &GraphCache{
		graph: g,
		index: make(map[Node]snodeRef),
	}
}

// Reset empties all arenas.
func (c *GraphCache) Reset() {
	c.nodes = c.nodes[:0]
	c.snodes = c.snodes[:0]
	c.steps = c.steps[:0]
	c.paths = c.paths[:0]
	clear(c.index)
}

// ResetPaths drops paths and steps but keeps interned supernodes, which
// stay valid across fetches from the same seed region.
func (c *GraphCache) ResetPaths() {
	c.steps = c.steps[:0]
	c.paths = c.paths[:0]
}

// FindOrCreateSupernode returns the supernode entered at the given
// directed node, walking and caching it on first sight. The returned
// orientation says how a traversal entering here reads the stored node
// list.
func (c *GraphCache) FindOrCreateSupernode(entry Node) (uint32, Orientation) {
	if ref, ok := c.index[entry]; ok {
		return ref.id, ref.orient
	}

	first := uint32(len(c.nodes))
	cur := entry
	c.nodes = append(c.nodes, cur)
	for {
		nexts, _ := c.graph.NextNodes(cur, c.graph.Edges(cur.Key))
		if len(nexts) != 1 {
			break
		}
		next := nexts[0]
		// The chain only continues through nodes with a single way in.
		if c.graph.Edges(next.Key).OutDegree(next.Orient.Opposite()) != 1 {
			break
		}
		if next == entry {
			break
		}
		c.nodes = append(c.nodes, next)
		cur = next
	}

	id := uint32(len(c.snodes))
	c.snodes = append(c.snodes, GCacheSnode{
		FirstNode: first,
		NumNodes:  uint32(len(c.nodes)) - first,
	})
	c.index[entry] = snodeRef{id: id, orient: Forward}
	if rev := cur.Reverse(); rev != entry {
		if _, ok := c.index[rev]; !ok {
			c.index[rev] = snodeRef{id: id, orient: Reverse}
		}
	}
	return id, Forward
}

// Snode returns the supernode record for an id.
func (c *GraphCache) Snode(id uint32) *GCacheSnode {
	return &c.snodes[id]
}

// SnodeNodes returns a supernode's stored node list.
func (c *GraphCache) SnodeNodes(id uint32) []Node {
	sn := &c.snodes[id]
	return c.nodes[sn.FirstNode : sn.FirstNode+sn.NumNodes]
}

// NewPath opens a fresh, empty path and returns its id.
func (c *GraphCache) NewPath() uint32 {
	id := uint32(len(c.paths))
	c.paths = append(c.paths, GCachePath{
		FirstStep: uint32(len(c.steps)),
	})
	return id
}

// PushStep appends a step to the most recently opened path. Steps of one
// path are contiguous in the arena: paths are built one at a time.
func (c *GraphCache) PushStep(pathid, snode uint32, orient Orientation) *GCacheStep {
	c.steps = append(c.steps, GCacheStep{
		Supernode: snode,
		Orient:    orient,
		PathID:    pathid,
	})
	c.paths[pathid].NumSteps++
	return &c.steps[len(c.steps)-1]
}

// DropLastPath rolls back the most recently opened path and its steps.
// Used when a finished walk turns out to duplicate an earlier path.
func (c *GraphCache) DropLastPath() {
	last := c.paths[len(c.paths)-1]
	c.steps = c.steps[:last.FirstStep]
	c.paths = c.paths[:len(c.paths)-1]
}

// Path returns the path record for an id.
func (c *GraphCache) Path(id uint32) *GCachePath {
	return &c.paths[id]
}

// PathSteps returns the step window of a path.
func (c *GraphCache) PathSteps(id uint32) []GCacheStep {
	p := &c.paths[id]
	return c.steps[p.FirstStep : p.FirstStep+p.NumSteps]
}

// StepNodes appends the nodes of one step, as traversed, to buf.
func (c *GraphCache) StepNodes(st *GCacheStep, buf []Node) []Node {
	nodes := c.SnodeNodes(st.Supernode)
	if st.Orient == Forward {
		return append(buf, nodes...)
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		buf = append(buf, nodes[i].Reverse())
	}
	return buf
}

// PathNodes appends the concatenated node list of a path to buf.
func (c *GraphCache) PathNodes(id uint32, buf []Node) []Node {
	for _, st := range c.PathSteps(id) {
		st := st
		buf = c.StepNodes(&st, buf)
	}
	return buf
}

// PathNumKmers counts the nodes along a path.
func (c *GraphCache) PathNumKmers(id uint32) int {
	total := 0
	for _, st := range c.PathSteps(id) {
		total += int(c.snodes[st.Supernode].NumNodes)
	}
	return total
}

// StepEndNode returns the last node of a step as traversed: the node a
// continuation leaves from.
func (c *GraphCache) StepEndNode(st *GCacheStep) Node {
	nodes := c.SnodeNodes(st.Supernode)
	if st.Orient == Forward {
		return nodes[len(nodes)-1]
	}
	return nodes[0].Reverse()
}
