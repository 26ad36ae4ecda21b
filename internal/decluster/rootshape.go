package decluster

import (
	"go.uber.org/zap"

	"clustertrim/internal/graph"
	"clustertrim/internal/trace"
)

// declusterRootShapeConsumers removes cluster membership from shape-only
// operators that sit at the root of a cluster: with no same-cluster producer
// feeding them, compiling them with the cluster buys nothing.
func declusterRootShapeConsumers(g *graph.Graph, o Oracles, cfg Config) error {
	log := cfg.logger()
	for _, n := range g.ReversePostOrder(g.NotBackedge) {
		if !o.Ops.IsShapeConsumer(n.Op) {
			continue
		}
		if !n.Clustered() {
			continue
		}

		rooted := true
		for _, e := range g.InEdges(n) {
			if e.Control {
				continue
			}
			if g.NodeByID(e.Src).Cluster == n.Cluster {
				rooted = false
				break
			}
		}
		if !rooted {
			continue
		}

		log.Debug("declustering root shape consumer",
			zap.String("node", n.Name),
			zap.String("cluster", n.Cluster))
		trace.SafeRecord(cfg.Sink, trace.Event{
			Kind:    trace.EventNodeDeclustered,
			Phase:   trace.PhaseRootShape,
			Node:    n.Name,
			Cluster: n.Cluster,
		})
		n.Cluster = ""
	}
	return nil
}
