package graph

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
)

// Fingerprint is the deterministic identity of a graph's current topology and
// labeling.
//
// It is computed from node content (name, op, device, cluster) and edge
// structure in canonical name order, making it invariant to arena layout and
// insertion order. Two graphs with equal fingerprints are structurally
// identical up to node/edge IDs.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// ComputeFingerprint hashes the live nodes and edges.
func (g *Graph) ComputeFingerprint() Fingerprint {
	h := sha256.New()

	writeField := func(data []byte) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(data)))
		h.Write(length[:])
		h.Write(data)
	}
	writeInt := func(v int) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(int64(v)))
		writeField(buf[:])
	}

	nodes := g.nodesSortedByName()
	writeInt(len(nodes))
	for _, n := range nodes {
		writeField([]byte(n.Name))
		writeField([]byte(n.Op))
		writeField([]byte(n.Device))
		writeField([]byte(n.Cluster))
	}

	type edgeKey struct {
		src, dst      string
		srcOut, dstIn int
		control       bool
	}
	keys := make([]edgeKey, 0, len(g.edges))
	for _, e := range g.Edges() {
		keys = append(keys, edgeKey{
			src:     g.nodes[e.Src].Name,
			dst:     g.nodes[e.Dst].Name,
			srcOut:  e.SrcOut,
			dstIn:   e.DstIn,
			control: e.Control,
		})
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.src != b.src {
			return a.src < b.src
		}
		if a.srcOut != b.srcOut {
			return a.srcOut < b.srcOut
		}
		if a.dst != b.dst {
			return a.dst < b.dst
		}
		if a.dstIn != b.dstIn {
			return a.dstIn < b.dstIn
		}
		return !a.control && b.control
	})

	writeInt(len(keys))
	for _, k := range keys {
		writeField([]byte(k.src))
		writeInt(k.srcOut)
		writeField([]byte(k.dst))
		writeInt(k.dstIn)
		if k.control {
			writeInt(1)
		} else {
			writeInt(0)
		}
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
