package decluster

import (
	"testing"

	"clustertrim/internal/graph"
	"clustertrim/internal/trace"
)

func TestRootShape_DeclustersRootConsumer(t *testing.T) {
	g := graph.New()
	p := addNode(t, g, "p", "Param", "")
	shape := addNode(t, g, "shape", "Shape", "cluster_1")
	add := addNode(t, g, "add", "Add", "cluster_1")
	addEdge(t, g, p, 0, shape, 0)
	addEdge(t, g, shape, 0, add, 0)
	addEdge(t, g, shape, 0, add, 1)

	rec := trace.NewRecorder()
	if err := declusterRootShapeConsumers(g, testOracles(t), Config{Sink: rec}); err != nil {
		t.Fatalf("declusterRootShapeConsumers: %v", err)
	}

	if got := clusterOf(t, g, "shape"); got != "" {
		t.Fatalf("expected root shape consumer to be declustered, got %q", got)
	}
	if got := clusterOf(t, g, "add"); got != "cluster_1" {
		t.Fatalf("expected add to keep its cluster, got %q", got)
	}

	events := rec.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Phase != trace.PhaseRootShape || events[0].Node != "shape" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestRootShape_KeepsConsumerWithSameClusterProducer(t *testing.T) {
	g := graph.New()
	p := addNode(t, g, "p", "Param", "cluster_1")
	shape := addNode(t, g, "shape", "Shape", "cluster_1")
	addEdge(t, g, p, 0, shape, 0)

	before := g.ComputeFingerprint()
	if err := declusterRootShapeConsumers(g, testOracles(t), Config{}); err != nil {
		t.Fatalf("declusterRootShapeConsumers: %v", err)
	}
	if after := g.ComputeFingerprint(); after != before {
		t.Fatalf("graph changed: shape has a same-cluster producer and is not a root")
	}
}

// A control edge from the same cluster does not make the consumer an
// interior node. Only data producers count.
func TestRootShape_ControlEdgeDoesNotAnchor(t *testing.T) {
	g := graph.New()
	gate := addNode(t, g, "gate", "NoOp", "cluster_1")
	p := addNode(t, g, "p", "Param", "")
	shape := addNode(t, g, "shape", "Shape", "cluster_1")
	addEdge(t, g, p, 0, shape, 0)
	if _, err := g.AddControlEdge(gate.ID(), shape.ID()); err != nil {
		t.Fatalf("AddControlEdge: %v", err)
	}

	if err := declusterRootShapeConsumers(g, testOracles(t), Config{}); err != nil {
		t.Fatalf("declusterRootShapeConsumers: %v", err)
	}
	if got := clusterOf(t, g, "shape"); got != "" {
		t.Fatalf("expected shape to be declustered despite the control edge, got %q", got)
	}
}

func TestRootShape_IgnoresNonShapeConsumers(t *testing.T) {
	g := graph.New()
	p := addNode(t, g, "p", "Param", "")
	add := addNode(t, g, "add", "Add", "cluster_1")
	addEdge(t, g, p, 0, add, 0)
	addEdge(t, g, p, 0, add, 1)

	before := g.ComputeFingerprint()
	if err := declusterRootShapeConsumers(g, testOracles(t), Config{}); err != nil {
		t.Fatalf("declusterRootShapeConsumers: %v", err)
	}
	if after := g.ComputeFingerprint(); after != before {
		t.Fatalf("graph changed: add is not a shape consumer")
	}
}
