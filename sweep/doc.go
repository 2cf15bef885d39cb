// Package sweep drives an external discrete-event scheduler simulator across a
// grid of probe ratios and utilization levels, and reduces the per-trial
// results into mean/standard-deviation summaries for plotting.
//
// # Reading Guide
//
// The files follow the data through one run:
//   - grid.go: GenerateGrid derives arrival delays for every (probe ratio,
//     utilization level) pair; Resolve binds them to a trial
//   - runner.go, simulator.go: Runner invokes the Simulator once per config point
//     and threads the first_time flag through FirstInvocation
//   - schema.go, aggregate.go: ReadRawFile parses the named raw schema;
//     Aggregator pools samples by utilization across trials
//   - emit.go, plotspec.go, render.go: aggregate files, the gnuplot descriptor
//     and its renderers
//   - experiment.go: the run state machine tying the above together
//
// # Errors
//
// ConfigurationError, SimulatorInvocationError, MissingResultFileError and
// MalformedRecordError abort a run. RendererInvocationError is only logged.
package sweep
