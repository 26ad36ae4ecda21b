package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// DeclusterTrace is the canonical, deterministic record of one refinement
// run: which nodes were cloned, relabeled or removed, and by which phase.
//
// Invariants:
//   - Captures the input graph fingerprint and an ordered list of events.
//   - Contains logical decisions only; no timestamps, pointers, or any
//     runtime-dependent values.
//   - Canonicalize() produces a total order independent of phase execution
//     details; byte-for-byte stability of CanonicalJSON is required.
//
// The trace is observational only and must never affect pass behavior.
type DeclusterTrace struct {
	GraphFingerprint string
	Events           []Event
}

// EventKind is the stable, canonical discriminator for Event.
//
// The string values are part of the trace's canonical bytes; do not rename.
type EventKind string

const (
	EventNodeDeclustered EventKind = "NodeDeclustered"
	EventNodeCloned      EventKind = "NodeCloned"
	EventNodeRemoved     EventKind = "NodeRemoved"
)

// Phase names the pipeline phase that produced an event. The values are part
// of the canonical bytes.
type Phase string

const (
	PhaseDynamicOps    Phase = "DynamicOps"
	PhaseHostTransfer  Phase = "HostTransfer"
	PhaseRecompilation Phase = "Recompilation"
	PhaseRootShape     Phase = "RootShape"
)

// Event is a single logical declustering decision.
//
// Node is the affected node's name (required). Cluster is the label the node
// carried when the decision was made. Clone is the clone's name and is only
// set for EventNodeCloned.
type Event struct {
	Kind    EventKind
	Phase   Phase
	Node    string
	Cluster string
	Clone   string
}

// Validate checks basic invariants and returns a descriptive error.
func (t *DeclusterTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.GraphFingerprint == "" {
		return errors.New("graphFingerprint is required")
	}
	for i := range t.Events {
		e := t.Events[i]
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.Node == "" {
			return fmt.Errorf("events[%d].node is required", i)
		}
		if e.Kind == EventNodeCloned && e.Clone == "" {
			return fmt.Errorf("events[%d].clone is required for kind %q", i, e.Kind)
		}
	}
	return nil
}

// Canonicalize sorts the trace into its canonical form.
//
// Ordering guarantee: a total order over events with Node as the primary
// key, independent of the order phases emitted them in.
func (t *DeclusterTrace) Canonicalize() {
	if t == nil {
		return
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		a := t.Events[i]
		b := t.Events[j]

		if a.Node != b.Node {
			return a.Node < b.Node
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Phase != b.Phase {
			return a.Phase < b.Phase
		}
		if a.Cluster != b.Cluster {
			return a.Cluster < b.Cluster
		}
		return a.Clone < b.Clone
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case EventNodeCloned:
		return 10
	case EventNodeDeclustered:
		return 20
	case EventNodeRemoved:
		return 30
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of the trace.
// It canonicalizes a copy of the trace to avoid mutating the caller's slices.
func (t DeclusterTrace) CanonicalJSON() ([]byte, error) {
	copyTrace := DeclusterTrace{GraphFingerprint: t.GraphFingerprint}
	copyTrace.Events = make([]Event, len(t.Events))
	copy(copyTrace.Events, t.Events)
	copyTrace.Canonicalize()
	if err := copyTrace.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&copyTrace)
}

// Hash returns the deterministic trace hash (sha256 hex) of the canonical
// JSON bytes.
func (t DeclusterTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON ensures canonical field ordering and omission rules.
func (t DeclusterTrace) MarshalJSON() ([]byte, error) {
	if t.GraphFingerprint == "" {
		return nil, errors.New("graphFingerprint is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"graphFingerprint\":")
	fp, _ := json.Marshal(t.GraphFingerprint)
	buf.Write(fp)
	buf.WriteByte(',')

	buf.WriteString("\"events\":[")
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON ensures canonical field ordering and omission of empty
// optional fields.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString("\"kind\":")
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	buf.WriteByte(',')
	buf.WriteString("\"node\":")
	nb, _ := json.Marshal(e.Node)
	buf.Write(nb)

	if e.Phase != "" {
		buf.WriteByte(',')
		buf.WriteString("\"phase\":")
		pb, _ := json.Marshal(string(e.Phase))
		buf.Write(pb)
	}

	if e.Cluster != "" {
		buf.WriteByte(',')
		buf.WriteString("\"cluster\":")
		cb, _ := json.Marshal(e.Cluster)
		buf.Write(cb)
	}

	if e.Clone != "" {
		buf.WriteByte(',')
		buf.WriteString("\"clone\":")
		cb, _ := json.Marshal(e.Clone)
		buf.Write(cb)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
