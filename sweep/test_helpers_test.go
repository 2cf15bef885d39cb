package sweep

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/inference-sim/probe-sweep/sweep/internal/testutil"
)

// mockSimulator is a testify mock of Simulator.
type mockSimulator struct {
	mock.Mock
}

func (m *mockSimulator) Simulate(ctx context.Context, p Params) error {
	return m.Called(ctx, p).Error(0)
}

// mockRenderer is a testify mock of Renderer.
type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(ctx context.Context, spec PlotSpec, descriptor string) error {
	return m.Called(ctx, spec, descriptor).Error(0)
}

// fakeSimulator behaves like the real simulator: each invocation appends one
// row to <rawDir>/<file_prefix>_response_time, truncating it when first_time
// is set or the file is new.
type fakeSimulator struct {
	t        *testing.T
	rawDir   string
	response func(resultID string, utilization float64) float64
	calls    []Params
}

func (f *fakeSimulator) Simulate(_ context.Context, p Params) error {
	f.t.Helper()
	f.calls = append(f.calls, p)
	path := RawResultPath(f.rawDir, p.Get("file_prefix"))
	util := utilizationOf(f.t, p)
	row := testutil.RawRow{
		Utilization:  util,
		ResponseTime: f.response(p.Get("file_prefix"), util),
		StdDev:       1,
		NetworkDelay: mustFloat(f.t, p.Get("network_delay")),
	}

	if _, err := os.Stat(path); p.Get("first_time") == "True" || os.IsNotExist(err) {
		testutil.WriteRawFile(f.t, path, row)
		return nil
	}
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = fh.Close() }()
	_, err = fh.WriteString(row.Line() + "\n")
	return err
}

// utilizationOf inverts the arrival delay formula back to a load fraction.
func utilizationOf(t *testing.T, p Params) float64 {
	t.Helper()
	taskLength := mustFloat(t, p.Get("task_length"))
	numTasks := mustFloat(t, p.Get("num_tasks"))
	servers := mustFloat(t, p.Get("num_servers"))
	cores := mustFloat(t, p.Get("cores_per_server"))
	delay := mustFloat(t, p.Get("job_arrival_delay"))
	return taskLength * numTasks / (servers * cores * delay)
}

func mustFloat(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

// smallConfig is a two-level experiment rooted in a temp dir.
func smallConfig(t *testing.T, trials int, ratios ...ProbeRatio) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Name = "exp"
	cfg.Trials = trials
	cfg.Axes = Axes{ProbeRatios: ratios, UtilizationLevels: 2}
	cfg.RawDir = filepath.Join(dir, "raw_results")
	cfg.ResultsDir = filepath.Join(dir, "raw_results")
	cfg.GraphsDir = filepath.Join(dir, "graphs")
	cfg.PlotDir = dir
	cfg.Renderer.Kind = RendererNone
	return cfg
}
