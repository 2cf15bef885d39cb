package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/probe-sweep/sweep"
	"github.com/inference-sim/probe-sweep/sweep/catalog"
)

// newExperiment builds an experiment from the command's flags. The returned
// cleanup closes the catalog, if one was opened.
func newExperiment(ctx context.Context, cmd *cobra.Command, withSimulator bool) (*sweep.Experiment, *sweep.Config, func(), error) {
	cfg, err := loadExperimentConfig(cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	var sim sweep.Simulator
	if withSimulator {
		if sim, err = sweep.NewExecSimulator(cfg.Simulator.Command, ""); err != nil {
			return nil, nil, nil, err
		}
	}
	renderer, err := sweep.NewRenderer(cfg.Renderer)
	if err != nil {
		return nil, nil, nil, err
	}

	cleanup := func() {}
	opts := []sweep.Option{sweep.WithSummary(cmd.OutOrStdout())}
	if cfg.Catalog != "" {
		cat, err := catalog.Open(ctx, cfg.Catalog)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = func() {
			if err := cat.Close(); err != nil {
				logrus.Warnf("Closing catalog %s: %v", cfg.Catalog, err)
			}
		}
		opts = append(opts, sweep.WithRecorder(cat))
	}

	exp, err := sweep.NewExperiment(cfg, sim, renderer, opts...)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return exp, cfg, cleanup, nil
}

func reportResult(cfg *sweep.Config, res *sweep.Result) {
	for _, path := range res.AggregateFiles {
		logrus.Infof("Wrote %s", path)
	}
	logrus.Infof("Wrote plot descriptor %s", res.Descriptor)
	if res.RenderErr != nil {
		logrus.Warnf("Graph for %s was not rendered", cfg.Name)
	}
}

// runCmd executes every trial of the sweep, then aggregates and plots
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every trial of the sweep with the simulator, then aggregate and plot",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		exp, cfg, cleanup, err := newExperiment(ctx, cmd, true)
		if err != nil {
			logrus.Fatalf("Cannot start experiment: %v", err)
		}
		defer cleanup()

		logrus.Infof("Starting run %s: %s, %d trial(s), %d probe ratios x %d utilization levels",
			exp.Info().ID, cfg.Name, cfg.Trials, len(cfg.Axes.ProbeRatios), cfg.Axes.UtilizationLevels)
		res, err := exp.Run(ctx)
		if err != nil {
			cleanup()
			logrus.Fatalf("Run failed: %v", err)
		}
		reportResult(cfg, res)
		logrus.Info("Sweep complete.")
	},
}

func init() {
	addExperimentFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}
