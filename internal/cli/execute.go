package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"clustertrim/internal/decluster"
	"clustertrim/internal/oracle"
	"clustertrim/internal/trace"
)

// Result describes a completed invocation.
type Result struct {
	ExitCode int
	// Fingerprint of the refined graph, set on success.
	Fingerprint string
	// TraceHash of the canonical decision trace, set when tracing was on.
	TraceHash string
}

// Execute maps a canonical invocation to one pass run.
//
// Responsibilities:
//   - Load the operator/device registry and the input graph.
//   - Run the refinement pipeline.
//   - Write the refined graph, and the canonical trace when requested, only
//     after the pass succeeded; a failed run commits nothing.
//   - Translate outcomes to semantic exit codes.
func Execute(inv Invocation) (Result, error) {
	res := Result{ExitCode: ExitInternalError}
	if err := inv.Canonicalize(); err != nil {
		res.ExitCode = ExitCodeFor(err)
		return res, err
	}

	log := newLogger(inv.Verbose)
	defer func() { _ = log.Sync() }()
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	reg, err := oracle.LoadRegistry(inv.RegistryPath)
	if err != nil {
		err = loadFailuref("load registry: %v", err)
		res.ExitCode = ExitCodeFor(err)
		return res, err
	}
	g, err := LoadGraphFile(inv.GraphPath)
	if err != nil {
		res.ExitCode = ExitCodeFor(err)
		return res, err
	}
	log.Info("inputs loaded",
		zap.String("graph", inv.GraphPath),
		zap.String("registry", inv.RegistryPath),
		zap.Int("nodes", len(g.Nodes())))

	rec := trace.NewRecorder()
	cfg := decluster.Config{
		DeclusterDynamicOps: inv.DeclusterDynamicOps,
		DynamicOps:          inv.DynamicOps,
		Logger:              log,
		Sink:                rec,
	}
	if err := decluster.Refine(g, decluster.FromRegistry(reg), cfg); err != nil {
		log.Error("refinement failed", zap.Error(err))
		res.ExitCode = ExitCodeFor(err)
		return res, err
	}

	fingerprint := g.ComputeFingerprint().String()
	res.Fingerprint = fingerprint

	if inv.OutputPath != "" {
		if err := WriteGraphFile(g, inv.OutputPath); err != nil {
			res.ExitCode = ExitInternalError
			return res, fmt.Errorf("write refined graph: %w", err)
		}
	}
	if inv.TracePath != "" {
		tr := rec.Trace(fingerprint)
		encoded, err := tr.CanonicalJSON()
		if err != nil {
			res.ExitCode = ExitInternalError
			return res, fmt.Errorf("encode trace: %w", err)
		}
		if err := writeFileAtomic(inv.TracePath, encoded, 0o644); err != nil {
			res.ExitCode = ExitInternalError
			return res, fmt.Errorf("write trace: %w", err)
		}
		res.TraceHash = trace.ComputeTraceHash(encoded)
	}

	log.Info("refinement complete",
		zap.String("fingerprint", fingerprint),
		zap.Int("trace_events", len(rec.Snapshot())))
	res.ExitCode = ExitSuccess
	return res, nil
}

// Validate loads the graph and registry and checks that every node resolves
// against the operator table and that every data edge's ports are within the
// signature's declared ranges. It mutates nothing.
func Validate(inv Invocation) (Result, error) {
	res := Result{ExitCode: ExitInternalError}
	if err := inv.Canonicalize(); err != nil {
		res.ExitCode = ExitCodeFor(err)
		return res, err
	}

	reg, err := oracle.LoadRegistry(inv.RegistryPath)
	if err != nil {
		err = loadFailuref("load registry: %v", err)
		res.ExitCode = ExitCodeFor(err)
		return res, err
	}
	g, err := LoadGraphFile(inv.GraphPath)
	if err != nil {
		res.ExitCode = ExitCodeFor(err)
		return res, err
	}

	var problems []string
	for _, n := range g.Nodes() {
		in, out, err := reg.MemoryTypes(n.Device, n)
		if err != nil {
			problems = append(problems, fmt.Sprintf("node %q (op %s): %v", n.Name, n.Op, err))
			continue
		}
		for _, e := range g.OutEdges(n) {
			if e.Control {
				continue
			}
			if e.SrcOut >= len(out) {
				problems = append(problems, fmt.Sprintf("node %q (op %s): output port %d out of range", n.Name, n.Op, e.SrcOut))
			}
		}
		for _, e := range g.InEdges(n) {
			if e.Control {
				continue
			}
			if e.DstIn >= len(in) {
				problems = append(problems, fmt.Sprintf("node %q (op %s): input port %d out of range", n.Name, n.Op, e.DstIn))
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		err := &InvocationError{
			ExitCode: ExitPassFailure,
			Message:  fmt.Sprintf("graph does not validate against the operator table:\n  %s", strings.Join(problems, "\n  ")),
		}
		res.ExitCode = ExitPassFailure
		return res, err
	}

	res.ExitCode = ExitSuccess
	res.Fingerprint = g.ComputeFingerprint().String()
	return res, nil
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
