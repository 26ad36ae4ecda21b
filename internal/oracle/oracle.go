// Package oracle defines the external decision services the declustering
// pass consumes, plus table-backed reference implementations suitable for
// tests and the CLI.
//
// The pass treats every oracle as synchronous and side-effect-free.
package oracle

import "clustertrim/internal/graph"

// MemType is the memory placement of a tensor at one port.
type MemType int

const (
	DeviceMemory MemType = iota
	HostMemory
)

func (m MemType) String() string {
	if m == HostMemory {
		return "host"
	}
	return "device"
}

// MemoryTypeResolver resolves per-port memory placements for a node from its
// assigned device type and operator signature.
type MemoryTypeResolver interface {
	MemoryTypes(device string, n *graph.Node) (in, out []MemType, err error)
}

// CompilePolicy reports whether a device type mandates cluster compilation
// for everything placed on it.
type CompilePolicy interface {
	MustCompile(device string) bool
}

// KernelAvailability reports whether an ordinary (non-compiled) kernel exists
// for an operator on a device type.
type KernelAvailability interface {
	HasKernel(device, op string) bool
}

// ConstAnalysis computes, per node ID, whether the node's output must be a
// compile-time constant. Only edges admitted by include participate in the
// backward propagation. The result is indexed by arena node ID.
type ConstAnalysis interface {
	Run(g *graph.Graph, include graph.EdgeFilter) ([]bool, error)
}

// OpPredicates exposes the derived operator flags the pass keys decisions on.
type OpPredicates interface {
	// IsShapeConsumer reports whether the operator observes tensor shapes
	// rather than values.
	IsShapeConsumer(op string) bool
	// HasResource reports whether the operator reads or writes a stateful
	// resource and therefore cannot be duplicated.
	HasResource(op string) bool
}
