package oracle

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"clustertrim/internal/graph"
)

var (
	ErrUnknownOp     = errors.New("unknown operator")
	ErrUnknownDevice = errors.New("unknown device type")
	ErrPortRange     = errors.New("port out of range")
)

// OpSignature declares the per-operator facts the pass needs: port counts,
// which ports live in host memory, which input ports demand compile-time
// constants, and the derived flags.
type OpSignature struct {
	Name          string `yaml:"name"`
	NumInputs     int    `yaml:"num_inputs"`
	NumOutputs    int    `yaml:"num_outputs"`
	HostInputs    []int  `yaml:"host_inputs,omitempty"`
	HostOutputs   []int  `yaml:"host_outputs,omitempty"`
	ConstInputs   []int  `yaml:"const_inputs,omitempty"`
	ShapeConsumer bool   `yaml:"shape_consumer,omitempty"`
	Resource      bool   `yaml:"resource,omitempty"`
}

// DeviceSpec declares a device type: whether placement on it mandates
// compilation, and which operators have an ordinary kernel on it.
type DeviceSpec struct {
	Name        string   `yaml:"name"`
	MustCompile bool     `yaml:"must_compile,omitempty"`
	Kernels     []string `yaml:"kernels,omitempty"`
}

// Registry is a table-backed implementation of MemoryTypeResolver,
// CompilePolicy, KernelAvailability and OpPredicates.
type Registry struct {
	ops     map[string]OpSignature
	devices map[string]deviceEntry
}

type deviceEntry struct {
	mustCompile bool
	kernels     map[string]struct{}
}

// NewRegistry builds a registry from explicit tables.
func NewRegistry(ops []OpSignature, devices []DeviceSpec) (*Registry, error) {
	r := &Registry{
		ops:     make(map[string]OpSignature, len(ops)),
		devices: make(map[string]deviceEntry, len(devices)),
	}
	for _, sig := range ops {
		if sig.Name == "" {
			return nil, fmt.Errorf("operator signature without a name")
		}
		if _, exists := r.ops[sig.Name]; exists {
			return nil, fmt.Errorf("duplicate operator signature: %q", sig.Name)
		}
		for _, p := range sig.HostInputs {
			if p < 0 || p >= sig.NumInputs {
				return nil, fmt.Errorf("operator %q: host input port %d out of range", sig.Name, p)
			}
		}
		for _, p := range sig.HostOutputs {
			if p < 0 || p >= sig.NumOutputs {
				return nil, fmt.Errorf("operator %q: host output port %d out of range", sig.Name, p)
			}
		}
		for _, p := range sig.ConstInputs {
			if p < 0 || p >= sig.NumInputs {
				return nil, fmt.Errorf("operator %q: const input port %d out of range", sig.Name, p)
			}
		}
		r.ops[sig.Name] = sig
	}
	for _, d := range devices {
		if d.Name == "" {
			return nil, fmt.Errorf("device spec without a name")
		}
		if _, exists := r.devices[d.Name]; exists {
			return nil, fmt.Errorf("duplicate device spec: %q", d.Name)
		}
		kernels := make(map[string]struct{}, len(d.Kernels))
		for _, op := range d.Kernels {
			kernels[op] = struct{}{}
		}
		r.devices[d.Name] = deviceEntry{mustCompile: d.MustCompile, kernels: kernels}
	}
	return r, nil
}

type registryFile struct {
	Ops     []OpSignature `yaml:"ops"`
	Devices []DeviceSpec  `yaml:"devices"`
}

// LoadRegistry reads the operator and device tables from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return NewRegistry(f.Ops, f.Devices)
}

// Signature returns the declared signature for an operator kind.
func (r *Registry) Signature(op string) (OpSignature, bool) {
	sig, ok := r.ops[op]
	return sig, ok
}

// MemoryTypes implements MemoryTypeResolver from the loaded tables.
func (r *Registry) MemoryTypes(device string, n *graph.Node) (in, out []MemType, err error) {
	if _, ok := r.devices[device]; !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDevice, device)
	}
	sig, ok := r.ops[n.Op]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownOp, n.Op)
	}

	in = make([]MemType, sig.NumInputs)
	out = make([]MemType, sig.NumOutputs)
	for _, p := range sig.HostInputs {
		in[p] = HostMemory
	}
	for _, p := range sig.HostOutputs {
		out[p] = HostMemory
	}
	return in, out, nil
}

// MustCompile implements CompilePolicy. Unknown device types default to
// optional compilation.
func (r *Registry) MustCompile(device string) bool {
	return r.devices[device].mustCompile
}

// HasKernel implements KernelAvailability.
func (r *Registry) HasKernel(device, op string) bool {
	_, ok := r.devices[device].kernels[op]
	return ok
}

// IsShapeConsumer implements OpPredicates.
func (r *Registry) IsShapeConsumer(op string) bool {
	return r.ops[op].ShapeConsumer
}

// HasResource implements OpPredicates.
func (r *Registry) HasResource(op string) bool {
	return r.ops[op].Resource
}
