package decluster

import (
	"go.uber.org/zap"

	"clustertrim/internal/graph"
	"clustertrim/internal/trace"
)

// declusterDynamicOps removes cluster membership from every node whose
// cluster-local reachability set is rooted at a blacklisted
// unpredictable-shape operator: static-shape compilation cannot safely
// include such dependents, and keeping them clustered forces a rebuild per
// distinct runtime shape.
func declusterDynamicOps(g *graph.Graph, cfg Config) error {
	blacklist := cfg.blacklist()
	log := cfg.logger()

	// One visited set shared across all blacklisted sources: a node reached
	// through one source is never re-traversed through another.
	visited := make(map[int]struct{})
	candidates := make(map[int]struct{})

	for _, b := range g.Nodes() {
		if _, dynamic := blacklist[b.Op]; !dynamic {
			continue
		}
		for _, e := range g.OutEdges(b) {
			if e.Control {
				continue
			}
			dst := g.NodeByID(e.Dst)
			if !dst.Clustered() {
				continue
			}
			// Only edges that cross into a cluster count: the source is
			// unclustered or belongs to a different cluster than dst.
			if b.Cluster == dst.Cluster {
				continue
			}
			log.Debug("blacklisted op feeds a cluster boundary",
				zap.String("source", b.Name),
				zap.String("op", b.Op),
				zap.String("consumer", dst.Name),
				zap.String("cluster", dst.Cluster))
			collectReachableInCluster(g, dst, dst.Cluster, visited, candidates)
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	for _, n := range g.ReversePostOrder(g.NotBackedge) {
		if _, ok := candidates[n.ID()]; !ok {
			continue
		}
		log.Debug("declustering possibly dynamic node",
			zap.String("node", n.Name),
			zap.String("op", n.Op),
			zap.String("cluster", n.Cluster))
		trace.SafeRecord(cfg.Sink, trace.Event{
			Kind:    trace.EventNodeDeclustered,
			Phase:   trace.PhaseDynamicOps,
			Node:    n.Name,
			Cluster: n.Cluster,
		})
		n.Cluster = ""
	}
	return nil
}

// collectReachableInCluster runs a breadth-first traversal forward from
// start, restricted to nodes carrying exactly the given cluster label, and
// records every node reached as a dynamic candidate.
func collectReachableInCluster(g *graph.Graph, start *graph.Node, cluster string, visited, candidates map[int]struct{}) {
	queue := []int{start.ID()}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		n := g.NodeByID(id)
		if n == nil || n.Cluster != cluster {
			continue
		}
		candidates[id] = struct{}{}

		for _, e := range g.OutEdges(n) {
			next := g.NodeByID(e.Dst)
			if next != nil && next.Cluster == cluster {
				queue = append(queue, next.ID())
			}
		}
	}
}
