// Package graph defines the mutable dataflow graph the declustering pass
// operates on.
//
// It is intentionally split into:
//   - An arena of nodes addressed by stable integer IDs; deletion is
//     tombstoning, IDs are never reused within a graph's lifetime.
//   - Edges held as value records (source ID + port, destination ID + port,
//     control flag) referenced from per-node ID lists.
//
// All traversal orders are deterministic: ties are broken by node name so
// identical inputs always produce identical orders.
package graph
