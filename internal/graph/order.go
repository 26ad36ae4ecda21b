package graph

import "sort"

// PostOrder returns the live nodes in a stable depth-first post-order: for
// every edge admitted by filter, the destination (consumer) appears before
// the source (producer).
//
// Determinism: roots and successor sets are both visited in ascending name
// order. Edges rejected by filter (typically backedges) are not followed, so
// the order is well-defined on graphs whose only cycles go through them.
func (g *Graph) PostOrder(filter EdgeFilter) []*Node {
	visited := make([]bool, len(g.nodes))
	order := make([]*Node, 0, len(g.nodes))

	var visit func(n *Node)
	visit = func(n *Node) {
		if visited[n.id] {
			return
		}
		visited[n.id] = true
		for _, succ := range g.successorsSorted(n, filter) {
			visit(succ)
		}
		order = append(order, n)
	}

	for _, n := range g.nodesSortedByName() {
		visit(n)
	}
	return order
}

// ReversePostOrder returns PostOrder reversed: producers before consumers.
func (g *Graph) ReversePostOrder(filter EdgeFilter) []*Node {
	order := g.PostOrder(filter)
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func (g *Graph) successorsSorted(n *Node, filter EdgeFilter) []*Node {
	seen := make(map[int]struct{})
	succ := make([]*Node, 0, len(n.out))
	for _, e := range g.OutEdges(n) {
		if filter != nil && !filter(e) {
			continue
		}
		if _, dup := seen[e.Dst]; dup {
			continue
		}
		seen[e.Dst] = struct{}{}
		if dst := g.NodeByID(e.Dst); dst != nil {
			succ = append(succ, dst)
		}
	}
	sort.Slice(succ, func(i, j int) bool { return succ[i].Name < succ[j].Name })
	return succ
}
