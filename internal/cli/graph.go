package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"clustertrim/internal/graph"
)

// graphFile is the on-disk graph schema. Edges reference nodes by name so
// the file stays readable and independent of arena indices.
type graphFile struct {
	Nodes []nodeSpec `yaml:"nodes"`
	Edges []edgeSpec `yaml:"edges,omitempty"`
}

type nodeSpec struct {
	Name    string `yaml:"name"`
	Op      string `yaml:"op"`
	Device  string `yaml:"device"`
	Cluster string `yaml:"cluster,omitempty"`
}

type edgeSpec struct {
	Src     string `yaml:"src"`
	SrcOut  int    `yaml:"src_out,omitempty"`
	Dst     string `yaml:"dst"`
	DstIn   int    `yaml:"dst_in,omitempty"`
	Control bool   `yaml:"control,omitempty"`
}

// LoadGraphFile reads and builds the graph definition at path.
//
// The loader is deterministic: unknown fields are rejected to avoid silent
// divergence, and nothing is read from the environment.
func LoadGraphFile(path string) (*graph.Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, loadFailuref("read graph: %v", err)
	}
	var gf graphFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&gf); err != nil {
		return nil, loadFailuref("parse graph yaml: %v", err)
	}
	if len(gf.Nodes) == 0 {
		return nil, loadFailuref("parse graph yaml: no nodes")
	}
	return buildGraph(gf)
}

func buildGraph(gf graphFile) (*graph.Graph, error) {
	g := graph.New()
	for _, ns := range gf.Nodes {
		if _, err := g.AddNode(ns.Name, ns.Op, ns.Device, ns.Cluster); err != nil {
			return nil, loadFailuref("graph node: %v", err)
		}
	}
	for _, es := range gf.Edges {
		src, ok := g.NodeByName(es.Src)
		if !ok {
			return nil, loadFailuref("graph edge: unknown source node %q", es.Src)
		}
		dst, ok := g.NodeByName(es.Dst)
		if !ok {
			return nil, loadFailuref("graph edge: unknown destination node %q", es.Dst)
		}
		if es.Control {
			if es.SrcOut != 0 || es.DstIn != 0 {
				return nil, loadFailuref("graph edge %q -> %q: control edges carry no ports", es.Src, es.Dst)
			}
			if _, err := g.AddControlEdge(src.ID(), dst.ID()); err != nil {
				return nil, loadFailuref("graph edge: %v", err)
			}
			continue
		}
		if _, err := g.AddEdge(src.ID(), es.SrcOut, dst.ID(), es.DstIn); err != nil {
			return nil, loadFailuref("graph edge: %v", err)
		}
	}
	return g, nil
}

// EncodeGraph renders g back into the on-disk schema with nodes and edges in
// a canonical order, so two equal graphs always serialize identically.
func EncodeGraph(g *graph.Graph) ([]byte, error) {
	var gf graphFile
	for _, n := range g.Nodes() {
		gf.Nodes = append(gf.Nodes, nodeSpec{Name: n.Name, Op: n.Op, Device: n.Device, Cluster: n.Cluster})
	}
	sort.Slice(gf.Nodes, func(i, j int) bool { return gf.Nodes[i].Name < gf.Nodes[j].Name })

	for _, e := range g.Edges() {
		gf.Edges = append(gf.Edges, edgeSpec{
			Src:     g.NodeByID(e.Src).Name,
			SrcOut:  portOrZero(e.SrcOut, e.Control),
			Dst:     g.NodeByID(e.Dst).Name,
			DstIn:   portOrZero(e.DstIn, e.Control),
			Control: e.Control,
		})
	}
	sort.Slice(gf.Edges, func(i, j int) bool {
		a, b := gf.Edges[i], gf.Edges[j]
		switch {
		case a.Src != b.Src:
			return a.Src < b.Src
		case a.SrcOut != b.SrcOut:
			return a.SrcOut < b.SrcOut
		case a.Dst != b.Dst:
			return a.Dst < b.Dst
		case a.DstIn != b.DstIn:
			return a.DstIn < b.DstIn
		default:
			return !a.Control && b.Control
		}
	})

	return yaml.Marshal(gf)
}

func portOrZero(port int, control bool) int {
	if control {
		return 0
	}
	return port
}

// WriteGraphFile atomically writes the canonical encoding of g to path.
func WriteGraphFile(g *graph.Graph, path string) error {
	b, err := EncodeGraph(g)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return writeFileAtomic(path, b, 0o644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
