package oracle

import (
	"fmt"

	"clustertrim/internal/graph"
)

// BackwardConstAnalysis is the reference ConstAnalysis: a node's output must
// be a compile-time constant iff it feeds, through admitted data edges, an
// input port that demands a constant, or a node that is itself constant.
//
// Propagation visits consumers before producers (stable post-order), so a
// single backward sweep is sufficient. Backedges never propagate constness.
type BackwardConstAnalysis struct {
	Ops *Registry
}

// Run implements ConstAnalysis. It fails if any live node's operator is
// missing from the registry, since constness cannot be decided without the
// operator's signature.
func (a *BackwardConstAnalysis) Run(g *graph.Graph, include graph.EdgeFilter) ([]bool, error) {
	if a == nil || a.Ops == nil {
		return nil, fmt.Errorf("const analysis requires an operator registry")
	}

	result := make([]bool, g.NumNodeIDs())
	for _, dst := range g.PostOrder(g.NotBackedge) {
		sig, ok := a.Ops.Signature(dst.Op)
		if !ok {
			return nil, fmt.Errorf("%w: %q (node %q)", ErrUnknownOp, dst.Op, dst.Name)
		}
		constIn := make(map[int]struct{}, len(sig.ConstInputs))
		for _, p := range sig.ConstInputs {
			constIn[p] = struct{}{}
		}

		for _, e := range g.InEdges(dst) {
			if e.Control {
				continue
			}
			if !g.NotBackedge(e) {
				continue
			}
			if include != nil && !include(e) {
				continue
			}
			if _, demands := constIn[e.DstIn]; demands || result[dst.ID()] {
				result[e.Src] = true
			}
		}
	}
	return result, nil
}
