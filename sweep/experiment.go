package sweep

import (
	"context"
	"io"
	"os"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Phase is a state of the run state machine. Phases advance strictly in
// declaration order; PhaseFailed is reachable from any non-terminal phase.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseSweepGenerated
	PhaseTrialsRunning
	PhaseTrialsComplete
	PhaseAggregating
	PhaseAggregated
	PhaseEmitted
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseInit:           "INIT",
	PhaseSweepGenerated: "SWEEP_GENERATED",
	PhaseTrialsRunning:  "TRIALS_RUNNING",
	PhaseTrialsComplete: "TRIALS_COMPLETE",
	PhaseAggregating:    "AGGREGATING",
	PhaseAggregated:     "AGGREGATED",
	PhaseEmitted:        "EMITTED",
	PhaseFailed:         "FAILED",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool { return p == PhaseEmitted || p == PhaseFailed }

// RunInfo identifies one run.
type RunInfo struct {
	ID         string
	Name       string
	Trials     int
	Normalize  bool
	Multiplier float64
	StartedAt  time.Time
}

// Recorder persists the aggregates of a finished run.
type Recorder interface {
	RecordRun(ctx context.Context, run RunInfo, aggs []RatioAggregate) error
}

// Result is what a successful run produced.
type Result struct {
	Info           RunInfo
	Grid           []GridPoint
	Aggregates     []RatioAggregate // empty in single-run mode
	AggregateFiles []string
	Descriptor     string
	RenderErr      error // non-fatal renderer failure, if any
}

// Experiment drives one run through the state machine. It is single use.
type Experiment struct {
	cfg      *Config
	sim      Simulator
	renderer Renderer
	recorder Recorder
	summary  io.Writer

	phase  Phase
	result Result
}

// Option configures an Experiment.
type Option func(*Experiment)

// WithRecorder stores multi-trial aggregates in r once they are emitted.
func WithRecorder(r Recorder) Option { return func(e *Experiment) { e.recorder = r } }

// WithSummary prints a summary table of the plotted data to w.
func WithSummary(w io.Writer) Option { return func(e *Experiment) { e.summary = w } }

// NewExperiment validates cfg and prepares a run. sim may be nil for
// Reaggregate, which never invokes the simulator.
func NewExperiment(cfg *Config, sim Simulator, renderer Renderer, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if renderer == nil {
		renderer = nopRenderer{}
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "generating run id")
	}
	e := &Experiment{
		cfg:      cfg,
		sim:      sim,
		renderer: renderer,
		phase:    PhaseInit,
		result: Result{Info: RunInfo{
			ID:         id.String(),
			Name:       cfg.Name,
			Trials:     cfg.Trials,
			Normalize:  cfg.Normalize,
			Multiplier: cfg.NormalizeMultiplier,
			StartedAt:  time.Now(),
		}},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Phase returns the current state.
func (e *Experiment) Phase() Phase { return e.phase }

// Info identifies the run.
func (e *Experiment) Info() RunInfo { return e.result.Info }

func (e *Experiment) advance(to Phase) error {
	if e.phase.Terminal() || to != e.phase+1 {
		return errors.Errorf("illegal transition %s -> %s", e.phase, to)
	}
	logrus.Infof("Run %s: %s -> %s", e.result.Info.ID, e.phase, to)
	e.phase = to
	return nil
}

func (e *Experiment) fail(err error) error {
	if !e.phase.Terminal() {
		logrus.Errorf("Run %s failed in %s: %v", e.result.Info.ID, e.phase, err)
		e.phase = PhaseFailed
	}
	return err
}

// Run executes every trial with the simulator, then aggregates and emits.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.sim == nil {
		return nil, e.fail(configErrorf("simulator", "no simulator configured"))
	}
	return e.execute(ctx, e.runTrials)
}

// Reaggregate walks the same phases over raw files left by an earlier run. The
// trial phase only checks that every expected raw file exists.
func (e *Experiment) Reaggregate(ctx context.Context) (*Result, error) {
	return e.execute(ctx, e.checkTrials)
}

func (e *Experiment) execute(ctx context.Context, trials func(context.Context) error) (*Result, error) {
	if e.phase != PhaseInit {
		return nil, errors.Errorf("run %s already started (phase %s)", e.result.Info.ID, e.phase)
	}
	steps := []func(context.Context) error{
		e.generate,
		func(context.Context) error { return e.advance(PhaseTrialsRunning) },
		trials,
		func(context.Context) error { return e.advance(PhaseTrialsComplete) },
		e.aggregate,
		e.emit,
	}
	for _, step := range steps {
		err := step(ctx)
		if IsFatal(err) {
			return nil, e.fail(err)
		}
		if err != nil {
			logrus.Warnf("Renderer failed, aggregate files are unaffected: %v", err)
			e.result.RenderErr = err
		}
	}
	return &e.result, nil
}

func (e *Experiment) generate(context.Context) error {
	grid, err := GenerateGrid(e.cfg.Workload, e.cfg.Axes)
	if err != nil {
		return err
	}
	e.result.Grid = grid
	logrus.Infof("Generated %d config points (%d probe ratios x %d utilization levels)",
		len(grid), len(e.cfg.Axes.ProbeRatios), e.cfg.Axes.UtilizationLevels)
	return e.advance(PhaseSweepGenerated)
}

func (e *Experiment) runTrials(ctx context.Context) error {
	runner := NewRunner(e.sim, e.cfg.Workload, e.cfg.Name, e.cfg.RawDir)
	flags := NewFirstInvocation(e.cfg.FirstInvocation)
	if err := runner.ClearStale(e.cfg.TrialIndices(), e.result.Grid); err != nil {
		return err
	}
	for _, trial := range e.cfg.TrialIndices() {
		if trial != SingleRunTrial {
			logrus.Infof("********Running Trial %d**********", trial)
		}
		if _, err := runner.RunTrial(ctx, trial, e.result.Grid, flags); err != nil {
			return err
		}
	}
	return nil
}

func (e *Experiment) checkTrials(context.Context) error {
	for _, trial := range e.cfg.TrialIndices() {
		for _, r := range e.cfg.Axes.ProbeRatios {
			path := RawResultPath(e.cfg.RawDir, ResultID(e.cfg.Name, trial, r))
			if _, err := os.Stat(path); err != nil {
				if os.IsNotExist(err) {
					return &MissingResultFileError{Path: path}
				}
				return errors.Wrapf(err, "checking %s", path)
			}
		}
	}
	return nil
}

func (e *Experiment) aggregate(context.Context) error {
	if err := e.advance(PhaseAggregating); err != nil {
		return err
	}
	if e.cfg.SingleRun() {
		logrus.Info("Single run: plotting raw result files directly")
	} else {
		agg := NewAggregator(e.cfg.Name, e.cfg.RawDir, e.cfg.Normalize, e.cfg.NormalizeMultiplier)
		aggs, err := agg.AggregateAll(e.cfg.Axes.ProbeRatios, e.cfg.TrialIndices())
		if err != nil {
			return err
		}
		e.result.Aggregates = aggs
	}
	return e.advance(PhaseAggregated)
}

func (e *Experiment) emit(ctx context.Context) error {
	emitter := NewEmitter(e.cfg)
	single := e.cfg.SingleRun()

	var spec PlotSpec
	if single {
		var err error
		if spec, err = emitter.BuildSinglePlotSpec(e.cfg.Axes.ProbeRatios); err != nil {
			return err
		}
	} else {
		paths, err := emitter.WriteAll(e.result.Aggregates)
		if err != nil {
			return err
		}
		e.result.AggregateFiles = paths
		spec = emitter.BuildPlotSpec(e.result.Aggregates)
	}

	descriptor, err := emitter.WriteDescriptor(spec, single)
	if err != nil {
		return err
	}
	e.result.Descriptor = descriptor

	if e.recorder != nil && !single {
		if err := e.recorder.RecordRun(ctx, e.result.Info, e.result.Aggregates); err != nil {
			return errors.Wrap(err, "recording run")
		}
	}
	if e.summary != nil {
		WriteSummaryTable(e.summary, seriesAggregates(spec, e.cfg.Axes.ProbeRatios))
	}
	if err := e.advance(PhaseEmitted); err != nil {
		return err
	}

	// Anything the renderer returns is a RendererInvocationError, so a broken
	// renderer never fails a run whose aggregate files are already written.
	if err := e.renderer.Render(ctx, spec, descriptor); err != nil {
		var re *RendererInvocationError
		if !errors.As(err, &re) {
			err = &RendererInvocationError{Descriptor: descriptor, Err: err}
		}
		return err
	}
	return nil
}

// seriesAggregates pairs each plotted series with its probe ratio.
func seriesAggregates(spec PlotSpec, ratios []ProbeRatio) []RatioAggregate {
	out := make([]RatioAggregate, 0, len(spec.Series))
	for i, s := range spec.Series {
		if i >= len(ratios) {
			break
		}
		out = append(out, RatioAggregate{Ratio: ratios[i], Records: s.Records})
	}
	return out
}
