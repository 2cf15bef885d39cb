package sweep

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AggregateHeader is the first line of every aggregate file.
const AggregateHeader = "Utilization\tResponseTime\tStdDev"

// Emitter writes aggregate files and plot descriptors for one run.
type Emitter struct {
	prefix     string
	rawDir     string
	resultsDir string
	plotDir    string
	graphsDir  string
}

// NewEmitter returns an emitter using cfg's name and directories.
func NewEmitter(cfg *Config) *Emitter {
	plotDir := cfg.PlotDir
	if plotDir == "" {
		plotDir = "."
	}
	return &Emitter{
		prefix:     cfg.Name,
		rawDir:     cfg.RawDir,
		resultsDir: cfg.ResultsDir,
		plotDir:    plotDir,
		graphsDir:  cfg.GraphsDir,
	}
}

// AggregatePath is <results_dir>/agg_<prefix>_<ratio>.
func (e *Emitter) AggregatePath(r ProbeRatio) string {
	return filepath.Join(e.resultsDir, fmt.Sprintf("agg_%s_%s", e.prefix, r.Fixed()))
}

// DescriptorPath is plot_<prefix>.gp, or plot_<prefix>_single.gp in single-run
// mode.
func (e *Emitter) DescriptorPath(single bool) string {
	return filepath.Join(e.plotDir, "plot_"+e.plotName(single)+".gp")
}

func (e *Emitter) plotName(single bool) string {
	if single {
		return e.prefix + "_single"
	}
	return e.prefix
}

// relToPlotDir makes path relative to the descriptor's directory so the
// renderer can run from there. Both sides are made absolute first, since Rel
// cannot relate an absolute plot dir to a relative path.
func (e *Emitter) relToPlotDir(path string) string {
	target, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	base, err := filepath.Abs(e.plotDir)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// WriteAggregates writes one aggregate file and returns its path.
func (e *Emitter) WriteAggregates(r ProbeRatio, records []AggregateRecord) (string, error) {
	if err := os.MkdirAll(e.resultsDir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating results dir %s", e.resultsDir)
	}
	path := e.AggregatePath(r)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", path)
	}
	w := bufio.NewWriter(f)
	_, _ = fmt.Fprintln(w, AggregateHeader)
	for _, rec := range records {
		_, _ = fmt.Fprintf(w, "%f\t%f\t%f\n", rec.Utilization, rec.MeanResponseTime, rec.StdDevResponseTime)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "closing %s", path)
	}
	logrus.Debugf("Wrote %d aggregate rows to %s", len(records), path)
	return path, nil
}

// WriteAll writes an aggregate file per probe ratio, in order.
func (e *Emitter) WriteAll(aggs []RatioAggregate) ([]string, error) {
	paths := make([]string, 0, len(aggs))
	for _, a := range aggs {
		p, err := e.WriteAggregates(a.Ratio, a.Records)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// BuildPlotSpec describes the multi-trial chart over the aggregate files.
func (e *Emitter) BuildPlotSpec(aggs []RatioAggregate) PlotSpec {
	spec := PlotSpec{
		Terminal: postscriptTerminal,
		Output:   e.relToPlotDir(filepath.Join(e.graphsDir, e.plotName(false)+".ps")),
		XLabel:   "Utilization",
		YLabel:   "Response Time (ms)",
		YMin:     0,
		YMax:     700,
		Title:    "Effect of Load Probing on Response Time",
		Key:      "left",
	}
	for i, a := range aggs {
		spec.Series = append(spec.Series, Series{
			Source:         e.relToPlotDir(e.AggregatePath(a.Ratio)),
			Title:          a.Ratio.Title(),
			Style:          i,
			XCol:           1,
			YCol:           2,
			ErrCol:         3,
			LineWidth:      4,
			ErrorLineWidth: 4,
			Records:        a.Records,
		})
	}
	return spec
}

// BuildSinglePlotSpec describes the single-run chart, plotted straight from
// the raw result files.
func (e *Emitter) BuildSinglePlotSpec(ratios []ProbeRatio) (PlotSpec, error) {
	spec := PlotSpec{
		Terminal: postscriptTerminal,
		Size:     ".5, .4",
		Output:   e.relToPlotDir(filepath.Join(e.graphsDir, e.plotName(true)+".ps")),
		XLabel:   "Utilization",
		YLabel:   "Job Response Time (ms)",
		YMin:     0,
		YMax:     500,
		Key:      "at 1,700 horizontal",
	}
	for i, r := range ratios {
		path := RawResultPath(e.rawDir, ResultID(e.prefix, SingleRunTrial, r))
		samples, err := ReadRawFile(path)
		if err != nil {
			return PlotSpec{}, err
		}
		records := make([]AggregateRecord, len(samples))
		for j, s := range samples {
			records[j] = AggregateRecord{
				Utilization:        s.Utilization,
				MeanResponseTime:   s.ResponseTime,
				StdDevResponseTime: s.ResponseTimeStdDev,
				Samples:            1,
			}
		}
		spec.Series = append(spec.Series, Series{
			Source:         e.relToPlotDir(path),
			Title:          r.Title(),
			Style:          i,
			XCol:           RawColumn("utilization"),
			YCol:           RawColumn("response_time"),
			ErrCol:         RawColumn("response_time_stddev"),
			LineWidth:      4,
			ErrorLineWidth: 1,
			Records:        records,
		})
	}
	return spec, nil
}

// WriteDescriptor writes spec as a gnuplot script and makes sure the graphs
// directory it points into exists.
func (e *Emitter) WriteDescriptor(spec PlotSpec, single bool) (string, error) {
	if e.graphsDir != "" {
		if err := os.MkdirAll(e.graphsDir, 0755); err != nil {
			return "", errors.Wrapf(err, "creating graphs dir %s", e.graphsDir)
		}
	}
	if err := os.MkdirAll(e.plotDir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating plot dir %s", e.plotDir)
	}
	path := e.DescriptorPath(single)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", path)
	}
	if err := WriteGnuplot(f, spec); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(err, "writing %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "closing %s", path)
	}
	return path, nil
}
