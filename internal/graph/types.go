package graph

// ControlPort is the port number carried by both endpoints of a control edge.
const ControlPort = -1

// opLoopReentry is the operator kind that re-enters a loop body. Edges whose
// source has this kind are backedges and are excluded from acyclic ordering.
const opLoopReentry = "NextIteration"

// Node is a single operation in the dataflow graph.
//
// Name is a unique external identifier used for addressing, determinism
// tie-breaks and diagnostics. Cluster is the compilation cluster label; the
// empty string means the node is unclustered. The pass only ever clears this
// field, it never invents or merges labels.
type Node struct {
	Name    string
	Op      string
	Device  string
	Cluster string

	id  int
	in  []int // edge IDs, insertion order
	out []int // edge IDs, insertion order
}

// ID returns the node's stable arena index.
func (n *Node) ID() int { return n.id }

// Clustered reports whether the node carries a cluster label.
func (n *Node) Clustered() bool { return n.Cluster != "" }

// Edge is a value record for one data or control dependency.
//
// For data edges SrcOut/DstIn are the producing output port and consuming
// input port. For control edges both ports are ControlPort.
type Edge struct {
	ID      int
	Src     int
	SrcOut  int
	Dst     int
	DstIn   int
	Control bool
}

// EdgeFilter selects which edges participate in an ordering computation.
// Returning false excludes the edge.
type EdgeFilter func(e Edge) bool
