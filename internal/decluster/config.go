package decluster

import (
	"go.uber.org/zap"

	"clustertrim/internal/oracle"
	"clustertrim/internal/trace"
)

// DefaultDynamicOps are the built-in operator kinds whose output shape is
// not statically known.
var DefaultDynamicOps = []string{"Where", "Unique"}

// Config is the immutable pass configuration, constructed once by the caller
// and threaded through Refine. The zero value is a valid configuration with
// the dynamic-op phase disabled.
type Config struct {
	// DeclusterDynamicOps enables the opt-in dynamic-op phase.
	DeclusterDynamicOps bool
	// DynamicOps are operator kinds added to DefaultDynamicOps.
	DynamicOps []string
	// Logger receives per-decision structured logs. Nil means no logging.
	Logger *zap.Logger
	// Sink receives the decision trace. Nil means no trace.
	Sink trace.Sink
}

func (c Config) blacklist() map[string]struct{} {
	set := make(map[string]struct{}, len(DefaultDynamicOps)+len(c.DynamicOps))
	for _, op := range DefaultDynamicOps {
		set[op] = struct{}{}
	}
	for _, op := range c.DynamicOps {
		if op != "" {
			set[op] = struct{}{}
		}
	}
	return set
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Oracles bundles the external decision services the pass consumes. All
// fields are required.
type Oracles struct {
	Memory    oracle.MemoryTypeResolver
	Policy    oracle.CompilePolicy
	Kernels   oracle.KernelAvailability
	Constants oracle.ConstAnalysis
	Ops       oracle.OpPredicates
}

func (o Oracles) validate() error {
	switch {
	case o.Memory == nil:
		return configf("memory-type resolver is required")
	case o.Policy == nil:
		return configf("device compile policy is required")
	case o.Kernels == nil:
		return configf("kernel availability resolver is required")
	case o.Constants == nil:
		return configf("constant analysis is required")
	case o.Ops == nil:
		return configf("operator predicates are required")
	}
	return nil
}

// FromRegistry wires all registry-backed oracles, using the reference
// backward constant analysis.
func FromRegistry(r *oracle.Registry) Oracles {
	return Oracles{
		Memory:    r,
		Policy:    r,
		Kernels:   r,
		Constants: &oracle.BackwardConstAnalysis{Ops: r},
		Ops:       r,
	}
}
