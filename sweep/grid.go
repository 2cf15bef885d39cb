package sweep

import (
	"fmt"
	"path/filepath"
)

// SingleRunTrial is the trial index of single-run mode. Result identifiers
// built with it carry no trial component.
const SingleRunTrial = -1

// rawResultSuffix is appended by the simulator to file_prefix.
const rawResultSuffix = "_response_time"

// GridPoint is one (probe ratio, utilization level) cell of the sweep.
type GridPoint struct {
	ProbeRatio       ProbeRatio
	UtilizationIndex int     // 1..G
	ArrivalDelay     float64 // ms between job arrivals, always > 0
	NetworkDelay     int     // 0 for the ideal baseline
}

// ConfigPoint is a GridPoint bound to a trial. It carries everything needed for
// one simulator invocation.
type ConfigPoint struct {
	GridPoint
	TrialIndex int
	ResultID   string
}

// ArrivalDelay returns the job inter-arrival delay that drives the cluster to
// the level-th of levels utilization steps.
func ArrivalDelay(w Workload, levels, level int) float64 {
	return w.TaskLength * w.AvgNumTasks * float64(levels) /
		(float64(w.NumServers) * float64(w.CoresPerServer) * float64(level))
}

// GenerateGrid expands the axes into |probe ratios| x G grid points, ordered by
// probe ratio then utilization level.
func GenerateGrid(w Workload, axes Axes) ([]GridPoint, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := axes.Validate(); err != nil {
		return nil, err
	}
	G := axes.UtilizationLevels
	points := make([]GridPoint, 0, len(axes.ProbeRatios)*G)
	for _, r := range axes.ProbeRatios {
		delay := w.NetworkDelay
		if r.IsIdeal() {
			delay = 0
		}
		for i := 1; i <= G; i++ {
			points = append(points, GridPoint{
				ProbeRatio:       r,
				UtilizationIndex: i,
				ArrivalDelay:     ArrivalDelay(w, G, i),
				NetworkDelay:     delay,
			})
		}
	}
	return points, nil
}

// ResultID is the join key between a trial's simulator output and aggregation.
func ResultID(prefix string, trial int, r ProbeRatio) string {
	if trial < 0 {
		return fmt.Sprintf("%s_%s", prefix, r)
	}
	return fmt.Sprintf("%s_%d_%s", prefix, trial, r)
}

// RawResultPath is where the simulator leaves the rows for resultID.
func RawResultPath(rawDir, resultID string) string {
	return filepath.Join(rawDir, resultID+rawResultSuffix)
}

// Resolve binds grid points to a trial.
func Resolve(prefix string, trial int, grid []GridPoint) []ConfigPoint {
	out := make([]ConfigPoint, len(grid))
	for i, gp := range grid {
		out[i] = ConfigPoint{
			GridPoint:  gp,
			TrialIndex: trial,
			ResultID:   ResultID(prefix, trial, gp.ProbeRatio),
		}
	}
	return out
}
