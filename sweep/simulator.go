package sweep

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Param is one key=value simulator argument.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered simulator argument list.
type Params []Param

// Args renders the parameters as key=value command-line arguments.
func (p Params) Args() []string {
	args := make([]string, len(p))
	for i, kv := range p {
		args[i] = kv.Key + "=" + kv.Value
	}
	return args
}

// Get returns the value for key, or "" if absent.
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// BuildParams resolves the full simulator parameter set for one config point.
func BuildParams(w Workload, cp ConfigPoint, first bool) Params {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	firstTime := "False"
	if first {
		firstTime = "True"
	}
	return Params{
		{"job_arrival_delay", f(cp.ArrivalDelay)},
		{"num_users", strconv.Itoa(w.NumUsers)},
		{"network_delay", strconv.Itoa(cp.NetworkDelay)},
		{"probes_ratio", cp.ProbeRatio.Fixed()},
		{"task_length_distribution", w.TaskLengthDistribution},
		{"num_tasks", strconv.Itoa(int(w.AvgNumTasks))},
		{"task_length", strconv.Itoa(int(w.TaskLength))},
		{"task_distribution", w.TaskDistribution},
		{"load_metric", w.LoadMetric},
		{"cores_per_server", strconv.Itoa(w.CoresPerServer)},
		{"file_prefix", cp.ResultID},
		{"num_servers", strconv.Itoa(w.NumServers)},
		{"total_time", strconv.Itoa(int(w.TotalTime))},
		{"first_time", firstTime},
	}
}

// Simulator runs one simulation to completion.
type Simulator interface {
	Simulate(ctx context.Context, params Params) error
}

// ExecSimulator runs the simulator as a blocking child process.
type ExecSimulator struct {
	command []string
	dir     string
}

// NewExecSimulator returns a simulator that runs command with the parameters
// appended, in working directory dir ("" for the current directory).
func NewExecSimulator(command []string, dir string) (*ExecSimulator, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, configErrorf("simulator.command", "must not be empty")
	}
	return &ExecSimulator{command: command, dir: dir}, nil
}

func (s *ExecSimulator) Simulate(ctx context.Context, params Params) error {
	args := append(append([]string{}, s.command[1:]...), params.Args()...)
	cmd := exec.CommandContext(ctx, s.command[0], args...)
	cmd.Dir = s.dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logrus.Debugf("Starting %s %s", s.command[0], strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return &SimulatorInvocationError{
			ResultID: params.Get("file_prefix"),
			Output:   strings.TrimSpace(out.String()),
			Err:      err,
		}
	}
	logrus.Debugf("Simulator finished for %s", params.Get("file_prefix"))
	return nil
}
