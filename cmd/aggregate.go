package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// aggregateCmd re-aggregates and re-plots raw files left by an earlier run
var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate and plot the raw results of an earlier run without simulating",
	Long: "Reads the raw result files every trial of the configured sweep should have produced, " +
		"writes aggregate files and a plot descriptor, and renders it. Every raw file must exist.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		exp, cfg, cleanup, err := newExperiment(ctx, cmd, false)
		if err != nil {
			logrus.Fatalf("Cannot start aggregation: %v", err)
		}
		defer cleanup()

		res, err := exp.Reaggregate(ctx)
		if err != nil {
			cleanup()
			logrus.Fatalf("Aggregation failed: %v", err)
		}
		reportResult(cfg, res)
	},
}

func init() {
	addExperimentFlags(aggregateCmd.Flags())
	rootCmd.AddCommand(aggregateCmd)
}
