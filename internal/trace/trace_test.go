package trace

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCanonicalize_TotalOrderIndependentOfEmission(t *testing.T) {
	events := []Event{
		{Kind: EventNodeRemoved, Node: "b", Phase: PhaseHostTransfer},
		{Kind: EventNodeDeclustered, Node: "a", Phase: PhaseRecompilation, Cluster: "cluster_0"},
		{Kind: EventNodeCloned, Node: "b", Phase: PhaseHostTransfer, Cluster: "cluster_0", Clone: "b/declustered"},
	}

	t1 := DeclusterTrace{GraphFingerprint: "fp", Events: []Event{events[0], events[1], events[2]}}
	t2 := DeclusterTrace{GraphFingerprint: "fp", Events: []Event{events[2], events[0], events[1]}}

	b1, err := t1.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	b2, err := t2.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("canonical bytes differ:\n%s\n%s", b1, b2)
	}

	h1, err := t1.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, _ := t2.Hash()
	if h1 != h2 {
		t.Fatalf("hashes differ: %s vs %s", h1, h2)
	}
}

func TestCanonicalize_SortsByNodeThenKind(t *testing.T) {
	tr := DeclusterTrace{
		GraphFingerprint: "fp",
		Events: []Event{
			{Kind: EventNodeRemoved, Node: "b", Phase: PhaseHostTransfer, Cluster: "c"},
			{Kind: EventNodeCloned, Node: "b", Phase: PhaseHostTransfer, Cluster: "c", Clone: "b/declustered"},
			{Kind: EventNodeDeclustered, Node: "a", Phase: PhaseRootShape, Cluster: "c"},
		},
	}
	tr.Canonicalize()

	want := []Event{
		{Kind: EventNodeDeclustered, Node: "a", Phase: PhaseRootShape, Cluster: "c"},
		{Kind: EventNodeCloned, Node: "b", Phase: PhaseHostTransfer, Cluster: "c", Clone: "b/declustered"},
		{Kind: EventNodeRemoved, Node: "b", Phase: PhaseHostTransfer, Cluster: "c"},
	}
	if diff := cmp.Diff(want, tr.Events); diff != "" {
		t.Fatalf("canonical event order mismatch (-want +got):\n%s", diff)
	}
}

func TestCanonicalJSON_FieldOrderAndOmission(t *testing.T) {
	tr := DeclusterTrace{
		GraphFingerprint: "fp",
		Events: []Event{
			{Kind: EventNodeDeclustered, Node: "n", Phase: PhaseRootShape, Cluster: "cluster_1"},
		},
	}
	b, err := tr.CanonicalJSON()
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	want := `{"graphFingerprint":"fp","events":[{"kind":"NodeDeclustered","node":"n","phase":"RootShape","cluster":"cluster_1"}]}`
	if string(b) != want {
		t.Fatalf("unexpected canonical bytes:\n got: %s\nwant: %s", b, want)
	}
}

func TestValidate_RejectsIncompleteEvents(t *testing.T) {
	tr := DeclusterTrace{GraphFingerprint: "fp", Events: []Event{{Kind: EventNodeCloned, Node: "n"}}}
	if err := tr.Validate(); err == nil {
		t.Fatalf("expected validation error for cloned event without clone name")
	}

	tr = DeclusterTrace{Events: nil}
	if err := tr.Validate(); err == nil {
		t.Fatalf("expected validation error for missing fingerprint")
	}
}

func TestRecorder_SnapshotIsIndependent(t *testing.T) {
	r := NewRecorder()
	r.Record(Event{Kind: EventNodeDeclustered, Node: "x", Phase: PhaseDynamicOps, Cluster: "c"})

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 event, got %d", len(snap))
	}
	snap[0].Node = "mutated"

	tr := r.Trace("fp")
	if tr.Events[0].Node != "x" {
		t.Fatalf("expected recorder contents to be isolated from snapshots")
	}
}

func TestSafeRecord_NilSinkIsNoop(t *testing.T) {
	SafeRecord(nil, Event{Kind: EventNodeRemoved, Node: "n"})
}
