// Package decluster implements the cluster-refinement pass: a single-shot,
// ordered pipeline that shrinks an existing compilation-cluster partition of
// a dataflow graph without ever creating or merging clusters.
//
// Phase order is load-bearing; each phase observes the complete topology and
// label changes of the previous one:
//
//	[dynamic-op declusterer, if enabled]
//	-> host-transfer reducer
//	-> recompilation reducer
//	-> root-shape-consumer declusterer
//
// The pass mutates the graph in place and either completes fully or fails
// without presenting a half-rewritten graph as the result.
package decluster
