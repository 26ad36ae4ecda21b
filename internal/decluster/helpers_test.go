package decluster

import (
	"testing"

	"clustertrim/internal/graph"
	"clustertrim/internal/oracle"
)

// testOracles wires the standard operator/device tables used across the
// phase tests. GPU has ordinary kernels for most ops; Placeholder and DevOp
// deliberately have none, and XLA_TPU mandates compilation.
func testOracles(t *testing.T) Oracles {
	t.Helper()
	r, err := oracle.NewRegistry(
		[]oracle.OpSignature{
			{Name: "Param", NumOutputs: 1},
			{Name: "HostParam", NumOutputs: 1, HostOutputs: []int{0}},
			{Name: "Placeholder", NumOutputs: 1},
			{Name: "Add", NumInputs: 2, NumOutputs: 1},
			{Name: "DevOp", NumInputs: 2, NumOutputs: 1},
			{Name: "HostOp", NumInputs: 2, NumOutputs: 1, HostInputs: []int{0, 1}, HostOutputs: []int{0}},
			{Name: "HostSink", NumInputs: 1, HostInputs: []int{0}},
			{Name: "DevSink", NumInputs: 1},
			{Name: "Shape", NumInputs: 1, NumOutputs: 1, HostOutputs: []int{0}, ShapeConsumer: true},
			{Name: "VarUpdate", NumInputs: 2, NumOutputs: 1, HostOutputs: []int{0}, Resource: true},
			{Name: "Reshape", NumInputs: 2, NumOutputs: 1, ConstInputs: []int{1}},
			{Name: "Where", NumInputs: 1, NumOutputs: 1},
			{Name: "Unique", NumInputs: 1, NumOutputs: 1},
			{Name: "NoOp"},
			{Name: "Merge", NumInputs: 2, NumOutputs: 1},
			{Name: "NextIteration", NumInputs: 1, NumOutputs: 1},
		},
		[]oracle.DeviceSpec{
			{Name: "GPU", Kernels: []string{
				"Param", "HostParam", "Add", "HostOp", "HostSink", "DevSink",
				"Shape", "Reshape", "Where", "Unique", "NoOp",
			}},
			{Name: "XLA_TPU", MustCompile: true, Kernels: []string{"Add"}},
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return FromRegistry(r)
}

func addNode(t *testing.T, g *graph.Graph, name, op, cluster string) *graph.Node {
	t.Helper()
	n, err := g.AddNode(name, op, "GPU", cluster)
	if err != nil {
		t.Fatalf("AddNode(%q): %v", name, err)
	}
	return n
}

func addEdge(t *testing.T, g *graph.Graph, src *graph.Node, srcOut int, dst *graph.Node, dstIn int) graph.Edge {
	t.Helper()
	e, err := g.AddEdge(src.ID(), srcOut, dst.ID(), dstIn)
	if err != nil {
		t.Fatalf("AddEdge(%q -> %q): %v", src.Name, dst.Name, err)
	}
	return e
}

func clusterOf(t *testing.T, g *graph.Graph, name string) string {
	t.Helper()
	n, ok := g.NodeByName(name)
	if !ok {
		t.Fatalf("node %q not found", name)
	}
	return n.Cluster
}
