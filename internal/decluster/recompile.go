package decluster

import (
	"go.uber.org/zap"

	"clustertrim/internal/graph"
	"clustertrim/internal/trace"
)

// reduceRecompilation declusters compile-time-constant boundary producers to
// reduce how often different constant argument values force a recompilation.
//
// Abstractly, for a cluster of the form
//
//	x0 = arg0
//	x1 = arg1
//	  ...
//	shape = f(x0, x1, ...)
//	result = Reshape(input=<something>, new_shape=shape)
//
// pulling f out of the cluster may reduce the number of compilations and can
// never increase it: a many-to-one f compiles once as an ordinary kernel
// instead of once per distinct input combination. The extra repeated
// host-side computation of f is assumed not to regress performance in any
// significant manner.
func reduceRecompilation(g *graph.Graph, o Oracles, cfg Config) error {
	// Restrict the analysis to intra-cluster edges: only constness that is
	// visible inside a cluster can trigger per-value recompilation of it.
	isConst, err := o.Constants.Run(g, g.IntraCluster)
	if err != nil {
		return configf("constant analysis failed: %v", err)
	}

	log := cfg.logger()
	for _, n := range g.ReversePostOrder(g.NotBackedge) {
		if n.ID() >= len(isConst) || !isConst[n.ID()] {
			continue
		}
		if !n.Clustered() {
			continue
		}

		// Only nodes with no same-cluster predecessor are eligible. In
		//
		//	Input -> OP -> Shape -> F -> Reshape
		//
		// declustering F would break up the cluster, which would at least
		// require relabeling the two halves; unsupported. Chains like
		//
		//	Input -> F0 -> F1 -> Reshape
		//
		// still work out: reverse post-order reaches F0 first, declusters
		// it, then F1 becomes a boundary node and is declustered in turn.
		onClusterEdge := true
		for _, e := range g.InEdges(n) {
			src := g.NodeByID(e.Src)
			if src.Clustered() && src.Cluster == n.Cluster {
				onClusterEdge = false
				break
			}
		}
		if !onClusterEdge {
			continue
		}

		if o.Policy.MustCompile(n.Device) {
			continue
		}
		if !o.Kernels.HasKernel(n.Device, n.Op) {
			continue
		}

		log.Debug("declustering must-be-constant node",
			zap.String("node", n.Name),
			zap.String("cluster", n.Cluster))
		trace.SafeRecord(cfg.Sink, trace.Event{
			Kind:    trace.EventNodeDeclustered,
			Phase:   trace.PhaseRecompilation,
			Node:    n.Name,
			Cluster: n.Cluster,
		})
		n.Cluster = ""
	}
	return nil
}
