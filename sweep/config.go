package sweep

import (
	"bytes"
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Workload is the base workload profile shared by every grid point.
type Workload struct {
	AvgNumTasks            float64 `yaml:"avg_num_tasks"`            // tasks per job
	TaskLength             float64 `yaml:"task_length"`              // ms per task
	NumServers             int     `yaml:"num_servers"`              // servers in the simulated cluster
	CoresPerServer         int     `yaml:"cores_per_server"`         // cores per server
	TotalTime              float64 `yaml:"total_time"`               // simulated observation time (ms)
	NetworkDelay           int     `yaml:"network_delay"`            // one-way delay for probing ratios (ms)
	NumUsers               int     `yaml:"num_users"`                // simulated frontends
	TaskLengthDistribution string  `yaml:"task_length_distribution"` // passed through to the simulator
	TaskDistribution       string  `yaml:"task_distribution"`        // passed through to the simulator
	LoadMetric             string  `yaml:"load_metric"`              // passed through to the simulator
}

// Axes holds the two sweep axes.
type Axes struct {
	ProbeRatios       []ProbeRatio `yaml:"probe_ratios"`
	UtilizationLevels int          `yaml:"utilization_levels"` // G; levels run 1..G
}

// SimulatorConfig names the external simulator command. Parameters are appended
// as key=value arguments.
type SimulatorConfig struct {
	Command []string `yaml:"command"`
}

// RendererConfig selects how the plot descriptor is rendered.
type RendererConfig struct {
	Kind    string `yaml:"kind"`    // "gnuplot" (default), "gonum" or "none"
	Command string `yaml:"command"` // renderer binary for kind gnuplot
}

// Config is a complete experiment description, usually loaded from YAML.
// All top-level sections must be listed to satisfy KnownFields(true).
type Config struct {
	Name                string          `yaml:"name"` // base prefix for every file of the run
	Trials              int             `yaml:"trials"`
	Normalize           bool            `yaml:"normalize"`
	NormalizeMultiplier float64         `yaml:"normalize_multiplier"`
	FirstInvocation     string          `yaml:"first_invocation"` // "run" or "result_file"
	Workload            Workload        `yaml:"workload"`
	Axes                Axes            `yaml:"axes"`
	RawDir              string          `yaml:"raw_dir"`
	ResultsDir          string          `yaml:"results_dir"`
	GraphsDir           string          `yaml:"graphs_dir"`
	PlotDir             string          `yaml:"plot_dir"`
	Simulator           SimulatorConfig `yaml:"simulator"`
	Renderer            RendererConfig  `yaml:"renderer"`
	Catalog             string          `yaml:"catalog"` // optional SQLite path
}

const (
	FirstInvocationRun        = "run"
	FirstInvocationResultFile = "result_file"

	RendererGnuplot = "gnuplot"
	RendererGonum   = "gonum"
	RendererNone    = "none"
)

var (
	validFirstInvocation = map[string]bool{FirstInvocationRun: true, FirstInvocationResultFile: true}
	validRenderers       = map[string]bool{RendererGnuplot: true, RendererGonum: true, RendererNone: true}
)

// DefaultConfig returns the medium multicore probing experiment.
func DefaultConfig() *Config {
	return &Config{
		Name:                "medium_multicore",
		Trials:              1,
		NormalizeMultiplier: 3,
		FirstInvocation:     FirstInvocationRun,
		Workload: Workload{
			AvgNumTasks:            200,
			TaskLength:             100,
			NumServers:             5000,
			CoresPerServer:         4,
			TotalTime:              2e4,
			NetworkDelay:           2,
			NumUsers:               1,
			TaskLengthDistribution: "constant",
			TaskDistribution:       "constant",
			LoadMetric:             "total",
		},
		Axes: Axes{
			ProbeRatios:       []ProbeRatio{Ideal(), Ratio(1.0), Ratio(1.2), Ratio(1.5)},
			UtilizationLevels: 10,
		},
		RawDir:     "raw_results",
		ResultsDir: "raw_results",
		GraphsDir:  "graphs",
		PlotDir:    ".",
		Renderer:   RendererConfig{Kind: RendererGnuplot, Command: "gnuplot"},
	}
}

// LoadConfig reads a YAML experiment file on top of DefaultConfig. Unknown keys
// are errors.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading experiment config")
	}
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "parsing experiment config")
	}
	return cfg, nil
}

// SingleRun reports whether the experiment runs one untagged trial and plots raw
// files directly.
func (c *Config) SingleRun() bool { return c.Trials == 1 }

// TrialIndices lists the trial indices the run produces: SingleRunTrial alone in
// single-run mode, 0..Trials-1 otherwise.
func (c *Config) TrialIndices() []int {
	if c.SingleRun() {
		return []int{SingleRunTrial}
	}
	idx := make([]int, c.Trials)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Validate checks every field needed to generate the grid and aggregate.
// Simulator and renderer commands are checked by their constructors.
func (c *Config) Validate() error {
	if c.Name == "" {
		return configErrorf("name", "must not be empty")
	}
	if c.Trials < 1 {
		return configErrorf("trials", "must be at least 1, got %d", c.Trials)
	}
	if math.IsNaN(c.NormalizeMultiplier) || math.IsInf(c.NormalizeMultiplier, 0) {
		return configErrorf("normalize_multiplier", "must be finite, got %v", c.NormalizeMultiplier)
	}
	if !validFirstInvocation[c.FirstInvocation] {
		return configErrorf("first_invocation", "unknown scope %q; valid: run, result_file", c.FirstInvocation)
	}
	if !validRenderers[c.Renderer.Kind] {
		return configErrorf("renderer.kind", "unknown renderer %q; valid: gnuplot, gonum, none", c.Renderer.Kind)
	}
	if c.RawDir == "" || c.ResultsDir == "" {
		return configErrorf("raw_dir/results_dir", "must not be empty")
	}
	if err := c.Workload.Validate(); err != nil {
		return err
	}
	return c.Axes.Validate()
}

// Validate checks the workload profile.
func (w Workload) Validate() error {
	switch {
	case !(w.AvgNumTasks > 0):
		return configErrorf("workload.avg_num_tasks", "must be positive, got %v", w.AvgNumTasks)
	case !(w.TaskLength > 0):
		return configErrorf("workload.task_length", "must be positive, got %v", w.TaskLength)
	case w.NumServers <= 0:
		return configErrorf("workload.num_servers", "must be positive, got %d", w.NumServers)
	case w.CoresPerServer <= 0:
		return configErrorf("workload.cores_per_server", "must be positive, got %d", w.CoresPerServer)
	case !(w.TotalTime > 0):
		return configErrorf("workload.total_time", "must be positive, got %v", w.TotalTime)
	case w.NetworkDelay <= 0:
		return configErrorf("workload.network_delay", "must be positive, got %d", w.NetworkDelay)
	case w.NumUsers <= 0:
		return configErrorf("workload.num_users", "must be positive, got %d", w.NumUsers)
	}
	// The simulator takes these as integers; a fraction would reach the arrival
	// delay formula but not the simulator.
	for _, f := range []struct {
		field string
		v     float64
	}{
		{"workload.avg_num_tasks", w.AvgNumTasks},
		{"workload.task_length", w.TaskLength},
		{"workload.total_time", w.TotalTime},
	} {
		if f.v != math.Trunc(f.v) || f.v > math.MaxInt32 {
			return configErrorf(f.field, "must be a whole number within int32 range, got %v", f.v)
		}
	}
	return nil
}

// Validate checks both sweep axes.
func (a Axes) Validate() error {
	if a.UtilizationLevels < 1 {
		return configErrorf("axes.utilization_levels", "must be at least 1, got %d", a.UtilizationLevels)
	}
	if len(a.ProbeRatios) == 0 {
		return configErrorf("axes.probe_ratios", "at least one probe ratio required")
	}
	seen := make(map[string]bool, len(a.ProbeRatios))
	for i, r := range a.ProbeRatios {
		if !r.IsIdeal() && !(r.Value() > 0) {
			return configErrorf("axes.probe_ratios", "entry %d: ratio must be positive or ideal, got %v", i, r.Value())
		}
		if seen[r.String()] {
			return configErrorf("axes.probe_ratios", "entry %d: duplicate ratio %s", i, r)
		}
		seen[r.String()] = true
	}
	return nil
}
