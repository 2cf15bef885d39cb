package cmd

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/inference-sim/probe-sweep/sweep"
)

var (
	// CLI flags shared by every command that needs an experiment config.
	// A flag only overrides the YAML file when it was set explicitly.
	configPath          string   // Experiment YAML file
	name                string   // Base prefix for all files of the run
	trials              int      // Number of trials; 1 means single-run mode
	normalize           bool     // Subtract a multiple of network delay from response times
	normalizeMultiplier float64  // Multiple of network delay to subtract
	probeRatios         []string // Probe ratio axis ("ideal" or positive numbers)
	utilizationLevels   int      // Number of utilization levels G
	firstInvocation     string   // Scope of the simulator's first_time flag
	rawDir              string   // Where the simulator leaves raw result files
	resultsDir          string   // Where aggregate files go
	graphsDir           string   // Where rendered graphs go
	plotDir             string   // Where plot descriptors go
	simulatorCommand    string   // Simulator command line; parameters are appended
	rendererKind        string   // gnuplot, gonum or none
	rendererCommand     string   // Renderer binary for kind gnuplot
	catalogPath         string   // Optional SQLite catalog
)

func addExperimentFlags(fs *pflag.FlagSet) {
	d := sweep.DefaultConfig()
	fs.StringVar(&configPath, "config", "", "Experiment YAML file (flags override its values)")
	fs.StringVar(&name, "name", d.Name, "Base prefix for all files of the run")
	fs.IntVar(&trials, "trials", d.Trials, "Number of trials; 1 runs once and plots raw results")
	fs.BoolVar(&normalize, "normalize", d.Normalize, "Subtract a multiple of network delay from response times")
	fs.Float64Var(&normalizeMultiplier, "normalize-multiplier", d.NormalizeMultiplier, "Multiple of network delay subtracted when normalizing")
	fs.StringSliceVar(&probeRatios, "probe-ratios", []string{"ideal", "1.0", "1.2", "1.5"}, "Comma-separated probe ratios; 'ideal' is the no-probing baseline")
	fs.IntVar(&utilizationLevels, "utilization-levels", d.Axes.UtilizationLevels, "Number of utilization levels")
	fs.StringVar(&firstInvocation, "first-invocation", d.FirstInvocation, "first_time scope: run or result_file")
	fs.StringVar(&rawDir, "raw-dir", d.RawDir, "Directory of raw simulator results")
	fs.StringVar(&resultsDir, "results-dir", d.ResultsDir, "Directory for aggregate files")
	fs.StringVar(&graphsDir, "graphs-dir", d.GraphsDir, "Directory for rendered graphs")
	fs.StringVar(&plotDir, "plot-dir", d.PlotDir, "Directory for plot descriptors")
	fs.StringVar(&simulatorCommand, "simulator", "", "Simulator command line, e.g. \"python simulation.py\"")
	fs.StringVar(&rendererKind, "renderer", d.Renderer.Kind, "Renderer: gnuplot, gonum or none")
	fs.StringVar(&rendererCommand, "renderer-command", d.Renderer.Command, "Renderer binary for --renderer gnuplot")
	fs.StringVar(&catalogPath, "catalog", "", "SQLite catalog recording aggregate results (optional)")
}

// loadExperimentConfig starts from --config (or the defaults) and applies every
// flag the user set explicitly.
func loadExperimentConfig(fs *pflag.FlagSet) (*sweep.Config, error) {
	cfg := sweep.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = sweep.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	if err := applyFlagOverrides(fs, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func applyFlagOverrides(fs *pflag.FlagSet, cfg *sweep.Config) error {
	if fs.Changed("name") {
		cfg.Name = name
	}
	if fs.Changed("trials") {
		cfg.Trials = trials
	}
	if fs.Changed("normalize") {
		cfg.Normalize = normalize
	}
	if fs.Changed("normalize-multiplier") {
		cfg.NormalizeMultiplier = normalizeMultiplier
	}
	if fs.Changed("probe-ratios") {
		ratios := make([]sweep.ProbeRatio, 0, len(probeRatios))
		for _, s := range probeRatios {
			r, err := sweep.ParseProbeRatio(s)
			if err != nil {
				return errors.Wrap(err, "--probe-ratios")
			}
			ratios = append(ratios, r)
		}
		cfg.Axes.ProbeRatios = ratios
	}
	if fs.Changed("utilization-levels") {
		cfg.Axes.UtilizationLevels = utilizationLevels
	}
	if fs.Changed("first-invocation") {
		cfg.FirstInvocation = firstInvocation
	}
	if fs.Changed("raw-dir") {
		cfg.RawDir = rawDir
	}
	if fs.Changed("results-dir") {
		cfg.ResultsDir = resultsDir
	}
	if fs.Changed("graphs-dir") {
		cfg.GraphsDir = graphsDir
	}
	if fs.Changed("plot-dir") {
		cfg.PlotDir = plotDir
	}
	if fs.Changed("simulator") {
		cfg.Simulator.Command = strings.Fields(simulatorCommand)
	}
	if fs.Changed("renderer") {
		cfg.Renderer.Kind = rendererKind
	}
	if fs.Changed("renderer-command") {
		cfg.Renderer.Command = rendererCommand
	}
	if fs.Changed("catalog") {
		cfg.Catalog = catalogPath
	}
	return nil
}
