package decluster

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"clustertrim/internal/graph"
	"clustertrim/internal/oracle"
	"clustertrim/internal/trace"
)

// cloneSuffix is appended to a node's name when it is cloned outside its
// cluster.
const cloneSuffix = "/declustered"

// reduceHostTransfers clones nodes to outside their cluster to avoid
// device-to-host copies. For instance, it converts this:
//
//	     .....
//	       |
//	       v
//	  A_Clustered ====> C_Unclustered
//	       |
//	       v
//	  B_Clustered
//
// to:
//
//	     .....
//	      | |
//	      | +-------------+
//	      |               |
//	      v               v
//	  A_Clustered   A_Unclustered ====> C_Unclustered
//	       |
//	       v
//	  B_Clustered
//
// where the ===> arrow has a hostmem source and destination and would entail
// a device-to-host copy if the endpoints were not in the same cluster.
func reduceHostTransfers(g *graph.Graph, o Oracles, cfg Config) error {
	// When deciding whether to decluster a particular node, the decision
	// depends on whether some of its consumers will be declustered too.
	// Post-order guarantees consumers are visited before producers.
	post := g.PostOrder(g.NotBackedge)
	marked := make(map[int]struct{})
	if err := findHostTransferCandidates(g, o, post, marked); err != nil {
		return err
	}

	log := cfg.logger()
	for _, n := range post {
		if _, ok := marked[n.ID()]; !ok {
			continue
		}
		if err := partiallyDeclusterNode(g, n, cfg); err != nil {
			return err
		}
		log.Debug("cloned node outside cluster to avoid host copy",
			zap.String("node", n.Name),
			zap.String("cluster", n.Cluster))
	}

	// Recompute the order and re-run detection: rewriting only removes
	// cross-cluster host-consuming edges from originals, never creates new
	// ones, so the candidate set must now be empty.
	post = g.PostOrder(g.NotBackedge)
	marked = make(map[int]struct{})
	if err := findHostTransferCandidates(g, o, post, marked); err != nil {
		return err
	}
	if len(marked) != 0 {
		leftover := make([]string, 0, len(marked))
		for id := range marked {
			leftover = append(leftover, g.NodeByID(id).Name)
		}
		sort.Strings(leftover)
		return invariantf("host-transfer reduction did not converge; still marked: %s",
			strings.Join(leftover, ", "))
	}
	return nil
}

// findHostTransferCandidates collects the nodes that have at least one
// consumer outside their cluster expecting host-memory output. Such nodes
// are cloned outside the cluster to avoid the device-to-host copy the edge
// would otherwise need.
func findHostTransferCandidates(g *graph.Graph, o Oracles, post []*graph.Node, marked map[int]struct{}) error {
	for _, n := range post {
		if !n.Clustered() {
			continue
		}
		// Duplicating a small shape computation is assumed cheaper than the
		// device copy it avoids, so shape-consumer outputs are always skipped.
		// TODO: only skip when the value is not also output from the cluster
		// to another consumer.
		if o.Ops.IsShapeConsumer(n.Op) {
			continue
		}
		// Resource reads/writes are side effects that cannot run twice.
		if o.Ops.HasResource(n.Op) {
			continue
		}

		_, outTypes, err := o.Memory.MemoryTypes(n.Device, n)
		if err != nil {
			return lookupf("node %q (op %s): %v", n.Name, n.Op, err)
		}

		for _, e := range g.OutEdges(n) {
			if e.Control {
				continue
			}
			if e.SrcOut >= len(outTypes) {
				return lookupf("node %q (op %s): output port %d out of signature range", n.Name, n.Op, e.SrcOut)
			}
			// A device-memory output stays on the device either way; the
			// edge incurs no extra copy and clustering keeps its benefit.
			if outTypes[e.SrcOut] == oracle.DeviceMemory {
				continue
			}

			dst := g.NodeByID(e.Dst)
			dstIn, _, err := o.Memory.MemoryTypes(dst.Device, dst)
			if err != nil {
				return lookupf("node %q (op %s): %v", dst.Name, dst.Op, err)
			}
			if e.DstIn >= len(dstIn) {
				return lookupf("node %q (op %s): input port %d out of signature range", dst.Name, dst.Op, e.DstIn)
			}
			if dstIn[e.DstIn] != oracle.HostMemory {
				continue
			}

			// Effective cluster of dst: a consumer already queued for
			// declustering counts as unclustered (post-order makes this
			// decision available before its producers are visited).
			dstCluster := dst.Cluster
			if _, queued := marked[dst.ID()]; queued {
				dstCluster = ""
			}
			if dstCluster != n.Cluster {
				marked[n.ID()] = struct{}{}
				break
			}
		}
	}
	return nil
}

// partiallyDeclusterNode rewrites one marked node: a clone carries all of the
// node's in-edges, and only the out-edges crossing the cluster boundary move
// to the clone. The original keeps its intra-cluster consumers, or is deleted
// when none remain.
func partiallyDeclusterNode(g *graph.Graph, n *graph.Node, cfg Config) error {
	cluster := n.Cluster
	var toMove []graph.Edge
	for _, e := range g.OutEdges(n) {
		if e.Control {
			continue
		}
		if g.NodeByID(e.Dst).Cluster != cluster {
			toMove = append(toMove, e)
		}
	}
	if len(toMove) == 0 {
		return invariantf("node %q marked for declustering has no boundary-crossing out-edges", n.Name)
	}

	clone, err := g.CloneNode(n, n.Name+cloneSuffix)
	if err != nil {
		return err
	}
	trace.SafeRecord(cfg.Sink, trace.Event{
		Kind:    trace.EventNodeCloned,
		Phase:   trace.PhaseHostTransfer,
		Node:    n.Name,
		Cluster: cluster,
		Clone:   clone.Name,
	})

	for _, e := range toMove {
		if _, err := g.AddEdge(clone.ID(), e.SrcOut, e.Dst, e.DstIn); err != nil {
			return err
		}
		if err := g.RemoveEdge(e.ID); err != nil {
			return err
		}
	}

	if len(g.OutEdges(n)) == 0 {
		if err := g.RemoveNode(n.ID()); err != nil {
			return err
		}
		trace.SafeRecord(cfg.Sink, trace.Event{
			Kind:    trace.EventNodeRemoved,
			Phase:   trace.PhaseHostTransfer,
			Node:    n.Name,
			Cluster: cluster,
		})
	}
	return nil
}
