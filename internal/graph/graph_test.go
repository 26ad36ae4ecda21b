package graph

import (
	"errors"
	"testing"
)

func mustNode(t *testing.T, g *Graph, name, op, device, cluster string) *Node {
	t.Helper()
	n, err := g.AddNode(name, op, device, cluster)
	if err != nil {
		t.Fatalf("AddNode(%q): %v", name, err)
	}
	return n
}

func mustEdge(t *testing.T, g *Graph, src *Node, srcOut int, dst *Node, dstIn int) Edge {
	t.Helper()
	e, err := g.AddEdge(src.ID(), srcOut, dst.ID(), dstIn)
	if err != nil {
		t.Fatalf("AddEdge(%q -> %q): %v", src.Name, dst.Name, err)
	}
	return e
}

func TestAddNode_RejectsDuplicateAndEmptyNames(t *testing.T) {
	g := New()
	mustNode(t, g, "a", "Add", "CPU", "")

	if _, err := g.AddNode("a", "Mul", "CPU", ""); !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("expected invalid graph error for duplicate name, got %v", err)
	}
	if _, err := g.AddNode("", "Mul", "CPU", ""); !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("expected invalid graph error for empty name, got %v", err)
	}
	if _, err := g.AddNode("b", "", "CPU", ""); !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("expected invalid graph error for empty op, got %v", err)
	}
}

func TestAddEdge_RejectsUnknownEndpointsAndBadPorts(t *testing.T) {
	g := New()
	a := mustNode(t, g, "a", "Add", "CPU", "")

	if _, err := g.AddEdge(a.ID(), 0, 99, 0); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected unknown node error, got %v", err)
	}
	if _, err := g.AddEdge(a.ID(), -1, a.ID(), 0); !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("expected invalid graph error for negative port, got %v", err)
	}
}

func TestRemoveNode_TombstonesIncidentEdges(t *testing.T) {
	g := New()
	a := mustNode(t, g, "a", "Add", "CPU", "")
	b := mustNode(t, g, "b", "Mul", "CPU", "")
	c := mustNode(t, g, "c", "Neg", "CPU", "")
	mustEdge(t, g, a, 0, b, 0)
	mustEdge(t, g, b, 0, c, 0)

	if err := g.RemoveNode(b.ID()); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}

	if g.NodeByID(b.ID()) != nil {
		t.Fatalf("expected node b to be gone")
	}
	if _, ok := g.NodeByName("b"); ok {
		t.Fatalf("expected lookup by name to miss removed node")
	}
	if got := g.OutEdges(a); len(got) != 0 {
		t.Fatalf("expected a to have no out-edges, got %v", got)
	}
	if got := g.InEdges(c); len(got) != 0 {
		t.Fatalf("expected c to have no in-edges, got %v", got)
	}
	if got := len(g.Edges()); got != 0 {
		t.Fatalf("expected no live edges, got %d", got)
	}

	// IDs remain stable and names stay reserved.
	if g.NodeByID(a.ID()) != a {
		t.Fatalf("expected a to keep its arena slot")
	}
	if _, err := g.AddNode("b", "Mul", "CPU", ""); !errors.Is(err, ErrInvalidGraph) {
		t.Fatalf("expected removed names to stay reserved, got %v", err)
	}
}

func TestCloneNode_CarriesInEdgesDeviceAndNoCluster(t *testing.T) {
	g := New()
	a := mustNode(t, g, "a", "Const", "XLA_GPU", "cluster_0")
	ctl := mustNode(t, g, "ctl", "NoOp", "XLA_GPU", "")
	b := mustNode(t, g, "b", "Shape", "XLA_GPU", "cluster_0")
	mustEdge(t, g, a, 1, b, 0)
	if _, err := g.AddControlEdge(ctl.ID(), b.ID()); err != nil {
		t.Fatalf("AddControlEdge: %v", err)
	}

	clone, err := g.CloneNode(b, "b/declustered")
	if err != nil {
		t.Fatalf("CloneNode: %v", err)
	}

	if clone.Op != b.Op || clone.Device != b.Device {
		t.Fatalf("expected clone to keep op and device, got %q on %q", clone.Op, clone.Device)
	}
	if clone.Clustered() {
		t.Fatalf("expected clone to be unclustered, got %q", clone.Cluster)
	}

	in := g.InEdges(clone)
	if len(in) != 2 {
		t.Fatalf("expected 2 cloned in-edges, got %d", len(in))
	}
	if in[0].Src != a.ID() || in[0].SrcOut != 1 || in[0].DstIn != 0 || in[0].Control {
		t.Fatalf("unexpected cloned data edge: %+v", in[0])
	}
	if in[1].Src != ctl.ID() || !in[1].Control {
		t.Fatalf("unexpected cloned control edge: %+v", in[1])
	}
	if got := g.OutEdges(clone); len(got) != 0 {
		t.Fatalf("expected clone to have no out-edges, got %v", got)
	}

	// Original keeps its own in-edges.
	if got := g.InEdges(b); len(got) != 2 {
		t.Fatalf("expected original in-edges untouched, got %d", len(got))
	}
}

func TestFingerprint_InvariantToInsertionOrder(t *testing.T) {
	build := func(names []string) *Graph {
		g := New()
		for _, name := range names {
			mustNode(t, g, name, "Add", "CPU", "cluster_0")
		}
		a, _ := g.NodeByName("a")
		b, _ := g.NodeByName("b")
		c, _ := g.NodeByName("c")
		mustEdge(t, g, a, 0, b, 0)
		mustEdge(t, g, b, 0, c, 0)
		return g
	}

	g1 := build([]string{"a", "b", "c"})
	g2 := build([]string{"c", "a", "b"})
	if g1.ComputeFingerprint() != g2.ComputeFingerprint() {
		t.Fatalf("expected equal fingerprints for equal structure")
	}
}

func TestFingerprint_SensitiveToClusterLabels(t *testing.T) {
	g := New()
	n := mustNode(t, g, "a", "Add", "CPU", "cluster_0")
	before := g.ComputeFingerprint()
	n.Cluster = ""
	if before == g.ComputeFingerprint() {
		t.Fatalf("expected fingerprint to change when a label is removed")
	}
}
