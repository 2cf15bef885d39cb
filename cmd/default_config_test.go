package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/probe-sweep/sweep"
)

// newTestFlagSet registers the experiment flags on a fresh set, which also
// resets every package-level flag variable to its default. The variables are
// reset again on cleanup so later command tests never see a stale --config.
func newTestFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addExperimentFlags(fs)
	require.NoError(t, fs.Parse(args))
	t.Cleanup(func() { addExperimentFlags(pflag.NewFlagSet("reset", pflag.ContinueOnError)) })
	return fs
}

func TestApplyFlagOverrides_UnsetFlags_KeepConfigValues(t *testing.T) {
	// GIVEN a config with non-default values and no flags on the command line
	cfg := sweep.DefaultConfig()
	cfg.Name = "from_yaml"
	cfg.Trials = 7
	cfg.Axes.UtilizationLevels = 3
	fs := newTestFlagSet(t)

	// WHEN the overrides are applied
	require.NoError(t, applyFlagOverrides(fs, cfg))

	// THEN the config values survive even though the flag defaults differ
	assert.Equal(t, "from_yaml", cfg.Name)
	assert.Equal(t, 7, cfg.Trials)
	assert.Equal(t, 3, cfg.Axes.UtilizationLevels)
}

func TestApplyFlagOverrides_ExplicitFlags_Win(t *testing.T) {
	// GIVEN flags set explicitly
	cfg := sweep.DefaultConfig()
	fs := newTestFlagSet(t,
		"--name", "cli",
		"--trials", "4",
		"--normalize",
		"--probe-ratios", "ideal,2.0",
		"--simulator", "python simulation.py",
		"--renderer", "none",
	)

	// WHEN the overrides are applied
	require.NoError(t, applyFlagOverrides(fs, cfg))

	// THEN each explicit flag replaced its config field
	assert.Equal(t, "cli", cfg.Name)
	assert.Equal(t, 4, cfg.Trials)
	assert.True(t, cfg.Normalize)
	require.Len(t, cfg.Axes.ProbeRatios, 2)
	assert.True(t, cfg.Axes.ProbeRatios[0].IsIdeal())
	assert.Equal(t, 2.0, cfg.Axes.ProbeRatios[1].Value())
	assert.Equal(t, []string{"python", "simulation.py"}, cfg.Simulator.Command)
	assert.Equal(t, sweep.RendererNone, cfg.Renderer.Kind)
}

func TestApplyFlagOverrides_BadProbeRatio_ReturnsError(t *testing.T) {
	// GIVEN an unparseable probe ratio
	fs := newTestFlagSet(t, "--probe-ratios", "1.0,lots")

	// WHEN the overrides are applied
	err := applyFlagOverrides(fs, sweep.DefaultConfig())

	// THEN the flag is named in the error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--probe-ratios")
}

func TestLoadExperimentConfig_YAMLThenFlags(t *testing.T) {
	// GIVEN a YAML experiment and a flag overriding one of its fields
	path := filepath.Join(t.TempDir(), "exp.yaml")
	yaml := "name: yaml_exp\ntrials: 3\naxes:\n  probe_ratios: [ideal, 1.5]\n  utilization_levels: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	fs := newTestFlagSet(t, "--config", path, "--trials", "2")

	// WHEN the config is loaded
	cfg, err := loadExperimentConfig(fs)

	// THEN YAML supplies the base and the flag wins where set
	require.NoError(t, err)
	assert.Equal(t, "yaml_exp", cfg.Name)
	assert.Equal(t, 2, cfg.Trials)
	assert.Equal(t, 4, cfg.Axes.UtilizationLevels)
	assert.Len(t, cfg.Axes.ProbeRatios, 2)
}

func TestLoadExperimentConfig_InvalidOverride_FailsValidation(t *testing.T) {
	// GIVEN zero utilization levels on the command line
	fs := newTestFlagSet(t, "--utilization-levels", "0")

	// WHEN the config is loaded
	_, err := loadExperimentConfig(fs)

	// THEN validation reports a configuration error
	var cfgErr *sweep.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
