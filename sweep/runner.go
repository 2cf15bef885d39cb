package sweep

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FirstInvocation hands out the simulator's first_time flag, one call per
// invocation in run order. With scope "run" only the first invocation of the
// whole run gets true; with "result_file" the first invocation writing each
// result identifier does.
type FirstInvocation struct {
	scope   string
	started bool
	seen    map[string]bool
}

// NewFirstInvocation returns a fresh tracker for one run.
func NewFirstInvocation(scope string) *FirstInvocation {
	return &FirstInvocation{scope: scope, seen: make(map[string]bool)}
}

// Next returns the flag for the next invocation, which writes resultID.
func (f *FirstInvocation) Next(resultID string) bool {
	if f.scope == FirstInvocationResultFile {
		first := !f.seen[resultID]
		f.seen[resultID] = true
		return first
	}
	first := !f.started
	f.started = true
	return first
}

// Runner drives the simulator over the grid for one trial at a time.
type Runner struct {
	sim      Simulator
	workload Workload
	prefix   string
	rawDir   string
}

// NewRunner returns a runner writing result identifiers under prefix, whose
// simulator leaves raw files in rawDir.
func NewRunner(sim Simulator, w Workload, prefix, rawDir string) *Runner {
	return &Runner{sim: sim, workload: w, prefix: prefix, rawDir: rawDir}
}

// RunTrial invokes the simulator once per grid point, in grid order, and checks
// each invocation left its raw result file behind. Use SingleRunTrial as trial
// for single-run mode. The first failure aborts the trial.
func (r *Runner) RunTrial(ctx context.Context, trial int, grid []GridPoint, flags *FirstInvocation) ([]ConfigPoint, error) {
	points := Resolve(r.prefix, trial, grid)
	for _, cp := range points {
		params := BuildParams(r.workload, cp, flags.Next(cp.ResultID))
		logrus.Debugf("Trial %d: %s level %d arrival_delay=%s first_time=%s",
			trial, cp.ResultID, cp.UtilizationIndex, params.Get("job_arrival_delay"), params.Get("first_time"))

		if err := r.sim.Simulate(ctx, params); err != nil {
			var sie *SimulatorInvocationError
			if errors.As(err, &sie) {
				return nil, err
			}
			return nil, &SimulatorInvocationError{ResultID: cp.ResultID, Err: err}
		}

		path := RawResultPath(r.rawDir, cp.ResultID)
		if _, err := os.Stat(path); err != nil {
			return nil, &SimulatorInvocationError{
				ResultID: cp.ResultID,
				Err:      errors.Wrapf(err, "no result file at %s", path),
			}
		}
	}
	return points, nil
}

// ClearStale removes raw files an earlier run left for any result identifier
// the given trials will write. The simulator appends to existing files, so a
// leftover file would mix old samples into this run and would also satisfy the
// output check without a new invocation having written anything.
func (r *Runner) ClearStale(trials []int, grid []GridPoint) error {
	for _, trial := range trials {
		for _, cp := range Resolve(r.prefix, trial, grid) {
			path := RawResultPath(r.rawDir, cp.ResultID)
			err := os.Remove(path)
			switch {
			case err == nil:
				logrus.Debugf("Removed stale result file %s", path)
			case !os.IsNotExist(err):
				return errors.Wrapf(err, "removing stale result file %s", path)
			}
		}
	}
	return nil
}
