package graph

import "sort"

// Graph is a mutable dataflow graph over an arena of nodes.
//
// Nodes and edges are removed by tombstoning their arena slot; live IDs stay
// stable across any sequence of mutations. The graph is exclusively owned by
// its mutator: it is not safe for concurrent use.
type Graph struct {
	nodes     []*Node // nil = tombstone
	edges     []Edge
	edgeAlive []bool
	byName    map[string]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{byName: make(map[string]int)}
}

// AddNode appends a node to the arena.
//
// Names must be non-empty and unique across the whole lifetime of the graph,
// including removed nodes, so diagnostics and clone names stay unambiguous.
func (g *Graph) AddNode(name, op, device, cluster string) (*Node, error) {
	if name == "" {
		return nil, invalidf("node name is required")
	}
	if op == "" {
		return nil, invalidf("node %q: operator kind is required", name)
	}
	if _, exists := g.byName[name]; exists {
		return nil, invalidf("duplicate node name: %q", name)
	}

	n := &Node{Name: name, Op: op, Device: device, Cluster: cluster, id: len(g.nodes)}
	g.nodes = append(g.nodes, n)
	g.byName[name] = n.id
	return n, nil
}

// AddEdge connects src output port srcOut to dst input port dstIn.
func (g *Graph) AddEdge(src, srcOut, dst, dstIn int) (Edge, error) {
	if srcOut < 0 || dstIn < 0 {
		return Edge{}, invalidf("data edge ports must be non-negative (%d -> %d)", srcOut, dstIn)
	}
	return g.addEdge(src, srcOut, dst, dstIn, false)
}

// AddControlEdge adds an ordering-only dependency from src to dst.
func (g *Graph) AddControlEdge(src, dst int) (Edge, error) {
	return g.addEdge(src, ControlPort, dst, ControlPort, true)
}

func (g *Graph) addEdge(src, srcOut, dst, dstIn int, control bool) (Edge, error) {
	from := g.NodeByID(src)
	to := g.NodeByID(dst)
	if from == nil {
		return Edge{}, unknownf("edge source %d", src)
	}
	if to == nil {
		return Edge{}, unknownf("edge destination %d", dst)
	}

	e := Edge{ID: len(g.edges), Src: src, SrcOut: srcOut, Dst: dst, DstIn: dstIn, Control: control}
	g.edges = append(g.edges, e)
	g.edgeAlive = append(g.edgeAlive, true)
	from.out = append(from.out, e.ID)
	to.in = append(to.in, e.ID)
	return e, nil
}

// RemoveEdge tombstones an edge. Removing an already-removed edge is an error.
func (g *Graph) RemoveEdge(id int) error {
	if id < 0 || id >= len(g.edges) || !g.edgeAlive[id] {
		return unknownf("edge %d", id)
	}
	g.edgeAlive[id] = false
	return nil
}

// RemoveNode tombstones a node along with all of its incident edges.
func (g *Graph) RemoveNode(id int) error {
	n := g.NodeByID(id)
	if n == nil {
		return unknownf("node %d", id)
	}
	for _, eid := range n.in {
		g.edgeAlive[eid] = false
	}
	for _, eid := range n.out {
		g.edgeAlive[eid] = false
	}
	g.nodes[id] = nil
	return nil
}

// CloneNode adds a copy of n under a fresh name: same operator kind and
// assigned device, no cluster label, and duplicates of all of n's in-edges
// (data and control) with their sources unchanged. Out-edges are not copied.
func (g *Graph) CloneNode(n *Node, name string) (*Node, error) {
	clone, err := g.AddNode(name, n.Op, n.Device, "")
	if err != nil {
		return nil, err
	}
	for _, e := range g.InEdges(n) {
		if e.Control {
			if _, err := g.AddControlEdge(e.Src, clone.id); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := g.AddEdge(e.Src, e.SrcOut, clone.id, e.DstIn); err != nil {
			return nil, err
		}
	}
	return clone, nil
}

// NodeByID returns the live node at the given arena index, or nil.
func (g *Graph) NodeByID(id int) *Node {
	if id < 0 || id >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// NodeByName returns a live node by name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	n := g.nodes[id]
	if n == nil {
		return nil, false
	}
	return n, true
}

// Nodes returns the live nodes in arena order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// NumNodeIDs returns the arena size, i.e. one past the highest node ID ever
// allocated. Per-node result vectors should be sized with this.
func (g *Graph) NumNodeIDs() int { return len(g.nodes) }

// InEdges returns copies of n's live in-edges in insertion order.
func (g *Graph) InEdges(n *Node) []Edge {
	return g.liveEdges(n.in)
}

// OutEdges returns copies of n's live out-edges in insertion order.
func (g *Graph) OutEdges(n *Node) []Edge {
	return g.liveEdges(n.out)
}

func (g *Graph) liveEdges(ids []int) []Edge {
	out := make([]Edge, 0, len(ids))
	for _, id := range ids {
		if g.edgeAlive[id] {
			out = append(out, g.edges[id])
		}
	}
	return out
}

// Edges returns all live edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for i, e := range g.edges {
		if g.edgeAlive[i] {
			out = append(out, e)
		}
	}
	return out
}

// NotBackedge excludes loop re-entry edges from ordering computations.
func (g *Graph) NotBackedge(e Edge) bool {
	src := g.NodeByID(e.Src)
	return src == nil || src.Op != opLoopReentry
}

// IntraCluster reports whether both endpoints of e carry the same non-empty
// cluster label.
func (g *Graph) IntraCluster(e Edge) bool {
	src := g.NodeByID(e.Src)
	dst := g.NodeByID(e.Dst)
	if src == nil || dst == nil {
		return false
	}
	return src.Clustered() && src.Cluster == dst.Cluster
}

func (g *Graph) nodesSortedByName() []*Node {
	out := g.Nodes()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
