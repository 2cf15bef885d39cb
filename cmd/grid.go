package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/probe-sweep/sweep"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print the configuration grid of the sweep without running it",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadExperimentConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("Invalid experiment: %v", err)
		}
		grid, err := sweep.GenerateGrid(cfg.Workload, cfg.Axes)
		if err != nil {
			logrus.Fatalf("Cannot generate grid: %v", err)
		}
		sweep.WriteGridTable(cmd.OutOrStdout(), grid)
	},
}

func init() {
	addExperimentFlags(gridCmd.Flags())
	rootCmd.AddCommand(gridCmd)
}
