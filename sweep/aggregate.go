package sweep

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// AggregateRecord summarizes every sample observed at one utilization for one
// probe ratio, pooled across trials.
type AggregateRecord struct {
	Utilization        float64
	MeanResponseTime   float64
	StdDevResponseTime float64
	Samples            int
}

// RatioAggregate is the aggregation result for one probe ratio.
type RatioAggregate struct {
	Ratio   ProbeRatio
	Records []AggregateRecord
}

// Aggregator reduces raw trial files into AggregateRecords.
type Aggregator struct {
	prefix     string
	rawDir     string
	normalize  bool
	multiplier float64
}

// NewAggregator returns an aggregator over the raw files of run prefix. When
// normalize is set, multiplier times the network delay column is subtracted
// from every response time before grouping.
func NewAggregator(prefix, rawDir string, normalize bool, multiplier float64) *Aggregator {
	return &Aggregator{prefix: prefix, rawDir: rawDir, normalize: normalize, multiplier: multiplier}
}

// SampleValue is the response time a raw sample contributes to its group.
func (a *Aggregator) SampleValue(s RawSample) float64 {
	if a.normalize {
		return s.ResponseTime - a.multiplier*s.NetworkDelay
	}
	return s.ResponseTime
}

// Aggregate pools the samples of ratio across trials, grouped by exact
// utilization, and returns one record per utilization in ascending order.
// Every trial file must exist and parse.
func (a *Aggregator) Aggregate(ratio ProbeRatio, trials []int) ([]AggregateRecord, error) {
	if len(trials) == 0 {
		return nil, configErrorf("trials", "aggregation needs at least one trial")
	}
	groups := make(map[float64][]float64)
	for _, trial := range trials {
		path := RawResultPath(a.rawDir, ResultID(a.prefix, trial, ratio))
		samples, err := ReadRawFile(path)
		if err != nil {
			return nil, err
		}
		logrus.Debugf("Read %d samples from %s", len(samples), path)
		for _, s := range samples {
			groups[s.Utilization] = append(groups[s.Utilization], a.SampleValue(s))
		}
	}

	utilizations := make([]float64, 0, len(groups))
	for u := range groups {
		utilizations = append(utilizations, u)
	}
	sort.Float64s(utilizations)

	records := make([]AggregateRecord, len(utilizations))
	for i, u := range utilizations {
		mean, std := MeanStdDev(groups[u])
		records[i] = AggregateRecord{
			Utilization:        u,
			MeanResponseTime:   mean,
			StdDevResponseTime: std,
			Samples:            len(groups[u]),
		}
	}
	return records, nil
}

// AggregateAll aggregates every ratio in axis order, stopping at the first
// error.
func (a *Aggregator) AggregateAll(ratios []ProbeRatio, trials []int) ([]RatioAggregate, error) {
	out := make([]RatioAggregate, 0, len(ratios))
	for _, r := range ratios {
		records, err := a.Aggregate(r, trials)
		if err != nil {
			return nil, err
		}
		out = append(out, RatioAggregate{Ratio: r, Records: records})
	}
	return out, nil
}
