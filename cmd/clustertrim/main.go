package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clustertrim/internal/cli"
)

// main is a thin, deterministic boundary: flags are canonicalized into a
// cli.Invocation before any pass logic runs, and all outcomes surface as
// semantic exit codes.
func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var inv cli.Invocation
	var result cli.Result

	root := &cobra.Command{
		Use:           "clustertrim",
		Short:         "Refine compilation-cluster assignments in a dataflow graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&inv.GraphPath, "graph", "", "input graph definition (YAML)")
	root.PersistentFlags().StringVar(&inv.RegistryPath, "ops", "", "operator/device table (YAML)")
	root.PersistentFlags().BoolVarP(&inv.Verbose, "verbose", "v", false, "log per-decision details")

	refine := &cobra.Command{
		Use:   "refine",
		Short: "Run the cluster-refinement pipeline and write the refined graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			result, err = cli.Execute(inv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refined graph fingerprint: %s\n", result.Fingerprint)
			if result.TraceHash != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "trace hash: %s\n", result.TraceHash)
			}
			return nil
		},
	}
	refine.Flags().StringVar(&inv.OutputPath, "out", "", "refined graph output path (YAML)")
	refine.Flags().StringVar(&inv.TracePath, "trace", "", "canonical decision-trace output path (JSON)")
	refine.Flags().BoolVar(&inv.DeclusterDynamicOps, "decluster-dynamic-ops", false,
		"also decluster nodes fed by unpredictable-shape operators")
	refine.Flags().StringArrayVar(&inv.DynamicOps, "dynamic-op", nil,
		"operator kind treated as unpredictable-shape, in addition to the built-ins (repeatable)")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the graph against the operator/device table without mutating it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			result, err = cli.Validate(inv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "graph ok, fingerprint: %s\n", result.Fingerprint)
			return nil
		},
	}

	root.AddCommand(refine, validate)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if result.ExitCode != 0 {
			return result.ExitCode
		}
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			return invErr.ExitCode
		}
		// Cobra's own errors (unknown flags, unknown subcommands) are
		// invocation mistakes.
		return cli.ExitInvalidInvocation
	}
	return cli.ExitSuccess
}
