package decluster

import (
	"go.uber.org/zap"

	"clustertrim/internal/graph"
)

// Refine runs the full refinement pipeline over g, mutating it in place.
//
// The pipeline never invents or merges clusters: it only removes cluster
// labels and may clone nodes outside their cluster to preserve correctness
// while doing so. On error the graph must be discarded; no partial result is
// committed as final.
func Refine(g *graph.Graph, o Oracles, cfg Config) error {
	if g == nil {
		return configf("graph is required")
	}
	if err := o.validate(); err != nil {
		return err
	}

	log := cfg.logger()
	log.Info("starting cluster refinement",
		zap.Int("nodes", len(g.Nodes())),
		zap.Bool("dynamic_ops_enabled", cfg.DeclusterDynamicOps))

	if cfg.DeclusterDynamicOps {
		if err := declusterDynamicOps(g, cfg); err != nil {
			return err
		}
	}
	if err := reduceHostTransfers(g, o, cfg); err != nil {
		return err
	}
	if err := reduceRecompilation(g, o, cfg); err != nil {
		return err
	}
	if err := declusterRootShapeConsumers(g, o, cfg); err != nil {
		return err
	}

	log.Info("cluster refinement complete", zap.Int("nodes", len(g.Nodes())))
	return nil
}
