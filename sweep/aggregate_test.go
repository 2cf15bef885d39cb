package sweep

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/probe-sweep/sweep/internal/testutil"
)

func writeTrial(t *testing.T, rawDir, prefix string, trial int, r ProbeRatio, rows ...testutil.RawRow) {
	t.Helper()
	testutil.WriteRawFile(t, RawResultPath(rawDir, ResultID(prefix, trial, r)), rows...)
}

func TestAggregate_ThreeTrials_PooledMeanAndSampleStdDev(t *testing.T) {
	// GIVEN three trials at ratio 1.5 with responses {100,104,96} at 0.5 and {200,210,190} at 1.0
	rawDir := t.TempDir()
	r := Ratio(1.5)
	low := []float64{100, 104, 96}
	high := []float64{200, 210, 190}
	for trial := 0; trial < 3; trial++ {
		writeTrial(t, rawDir, "exp", trial, r,
			testutil.RawRow{Utilization: 0.5, ResponseTime: low[trial]},
			testutil.RawRow{Utilization: 1.0, ResponseTime: high[trial]},
		)
	}

	// WHEN aggregated
	records, err := NewAggregator("exp", rawDir, false, 3).Aggregate(r, []int{0, 1, 2})
	require.NoError(t, err)

	// THEN one record per utilization with unbiased deviation
	require.Len(t, records, 2)
	assert.Equal(t, 0.5, records[0].Utilization)
	testutil.AssertFloat64Equal(t, "mean@0.5", 100.0, records[0].MeanResponseTime, 1e-9)
	testutil.AssertFloat64Equal(t, "std@0.5", 4.0, records[0].StdDevResponseTime, 1e-9)
	assert.Equal(t, 3, records[0].Samples)
	assert.Equal(t, 1.0, records[1].Utilization)
	testutil.AssertFloat64Equal(t, "mean@1.0", 200.0, records[1].MeanResponseTime, 1e-9)
	testutil.AssertFloat64Equal(t, "std@1.0", 10.0, records[1].StdDevResponseTime, 1e-9)
}

func TestAggregate_Normalize_SubtractsMultipleOfNetworkDelay(t *testing.T) {
	rawDir := t.TempDir()
	r := Ratio(1.0)
	writeTrial(t, rawDir, "exp", 0, r, testutil.RawRow{Utilization: 0.5, ResponseTime: 120, NetworkDelay: 2})
	writeTrial(t, rawDir, "exp", 1, r, testutil.RawRow{Utilization: 0.5, ResponseTime: 130, NetworkDelay: 4})

	// WHEN normalized with the default multiplier
	norm, err := NewAggregator("exp", rawDir, true, 3).Aggregate(r, []int{0, 1})
	require.NoError(t, err)
	// THEN samples are 120-6 and 130-12
	require.Len(t, norm, 1)
	testutil.AssertFloat64Equal(t, "normalized mean", (114.0+118.0)/2, norm[0].MeanResponseTime, 1e-12)

	// WHEN not normalized the raw values are used
	raw, err := NewAggregator("exp", rawDir, false, 3).Aggregate(r, []int{0, 1})
	require.NoError(t, err)
	testutil.AssertFloat64Equal(t, "raw mean", 125.0, raw[0].MeanResponseTime, 1e-12)

	// AND the multiplier is configurable
	custom, err := NewAggregator("exp", rawDir, true, 1).Aggregate(r, []int{0, 1})
	require.NoError(t, err)
	testutil.AssertFloat64Equal(t, "custom mean", (118.0+126.0)/2, custom[0].MeanResponseTime, 1e-12)
}

func TestAggregate_OtherRatiosNeverInfluenceGroup(t *testing.T) {
	// GIVEN two ratios sharing utilizations but with wildly different responses
	rawDir := t.TempDir()
	for trial := 0; trial < 2; trial++ {
		writeTrial(t, rawDir, "exp", trial, Ratio(1.0), testutil.RawRow{Utilization: 0.5, ResponseTime: 10})
		writeTrial(t, rawDir, "exp", trial, Ratio(2.0), testutil.RawRow{Utilization: 0.5, ResponseTime: 9999})
	}

	aggs, err := NewAggregator("exp", rawDir, false, 3).AggregateAll([]ProbeRatio{Ratio(1.0), Ratio(2.0)}, []int{0, 1})
	require.NoError(t, err)

	require.Len(t, aggs, 2)
	assert.Equal(t, 10.0, aggs[0].Records[0].MeanResponseTime)
	assert.Equal(t, 0.0, aggs[0].Records[0].StdDevResponseTime)
	assert.Equal(t, 9999.0, aggs[1].Records[0].MeanResponseTime)
}

func TestAggregate_UtilizationsUniqueAndAscending(t *testing.T) {
	// GIVEN trials listing utilizations out of order, with one trial seeing an extra level
	rawDir := t.TempDir()
	r := Ratio(1.2)
	writeTrial(t, rawDir, "exp", 0, r,
		testutil.RawRow{Utilization: 0.9, ResponseTime: 3},
		testutil.RawRow{Utilization: 0.1, ResponseTime: 1},
	)
	writeTrial(t, rawDir, "exp", 1, r,
		testutil.RawRow{Utilization: 0.5, ResponseTime: 2},
		testutil.RawRow{Utilization: 0.1, ResponseTime: 1},
		testutil.RawRow{Utilization: 0.9, ResponseTime: 3},
	)

	records, err := NewAggregator("exp", rawDir, false, 3).Aggregate(r, []int{0, 1})
	require.NoError(t, err)

	var utils []float64
	for _, rec := range records {
		utils = append(utils, rec.Utilization)
	}
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, utils)
	assert.Equal(t, 1, records[1].Samples)
}

func TestAggregate_Idempotent(t *testing.T) {
	rawDir := t.TempDir()
	r := Ratio(1.5)
	for trial := 0; trial < 3; trial++ {
		writeTrial(t, rawDir, "exp", trial, r,
			testutil.RawRow{Utilization: 0.3, ResponseTime: float64(50 + trial*7)},
			testutil.RawRow{Utilization: 0.6, ResponseTime: float64(80 - trial*3), NetworkDelay: 2},
		)
	}
	agg := NewAggregator("exp", rawDir, true, 3)

	first, err := agg.Aggregate(r, []int{0, 1, 2})
	require.NoError(t, err)
	second, err := agg.Aggregate(r, []int{0, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregate_MissingTrialFile_Aborts(t *testing.T) {
	// GIVEN trials 0 and 2 present but trial 1 missing
	rawDir := t.TempDir()
	r := Ratio(1.5)
	writeTrial(t, rawDir, "exp", 0, r, testutil.RawRow{Utilization: 0.5, ResponseTime: 1})
	writeTrial(t, rawDir, "exp", 2, r, testutil.RawRow{Utilization: 0.5, ResponseTime: 1})

	records, err := NewAggregator("exp", rawDir, false, 3).Aggregate(r, []int{0, 1, 2})

	// THEN no partial records come back
	var missing *MissingResultFileError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, RawResultPath(rawDir, "exp_1_1.5"), missing.Path)
	assert.Nil(t, records)
}

func TestAggregate_NoTrials_ConfigurationError(t *testing.T) {
	_, err := NewAggregator("exp", t.TempDir(), false, 3).Aggregate(Ratio(1), nil)
	var ce *ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestReadRawFile_MalformedRows(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		column string
	}{
		{"short row", "n\tx\n200\t1\t0.5\n", ""},
		{"non-numeric utilization", "200\t1\thigh\t0\t1\t0\t100\t0\t0\t2\n", "utilization"},
		{"non-numeric response", "200\t1\t0.5\t0\t1\t0\tslow\t0\t0\t2\n", "response_time"},
		{"non-numeric delay", "200\t1\t0.5\t0\t1\t0\t100\t0\t0\t\n", "network_delay"},
		{"NaN utilization", "200\t1\tNaN\t0\t1\t0\t100\t0\t0\t2\n", "utilization"},
		{"infinite response", "200\t1\t0.5\t0\t1\t0\t+Inf\t0\t0\t2\n", "response_time"},
		{"Infinity stddev", "200\t1\t0.5\t0\tInfinity\t0\t100\t0\t0\t2\n", "response_time_stddev"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "f_response_time")
			testutil.WriteFile(t, path, tc.body)

			_, err := ReadRawFile(path)

			var mre *MalformedRecordError
			require.True(t, errors.As(err, &mre), "got %v", err)
			assert.Equal(t, tc.column, mre.Column)
			assert.Equal(t, path, mre.Path)
		})
	}
}

func TestAggregate_NaNUtilization_MalformedRecord(t *testing.T) {
	// GIVEN a trial file whose utilization column reads NaN on two rows
	dir := t.TempDir()
	row := "200\t1\tNaN\t0\t1\t0\t100\t0\t0\t2\n"
	testutil.WriteFile(t, RawResultPath(dir, "exp_0_1.5"), testutil.RawHeader+"\n"+row+row)

	// WHEN aggregated
	recs, err := NewAggregator("exp", dir, false, 3).Aggregate(Ratio(1.5), []int{0})

	// THEN the file is rejected instead of yielding NaN groups
	var mre *MalformedRecordError
	require.True(t, errors.As(err, &mre), "got %v", err)
	assert.Equal(t, "utilization", mre.Column)
	assert.Equal(t, 2, mre.Line)
	assert.Contains(t, mre.Reason, "not a finite number")
	assert.Nil(t, recs)
}

func TestReadRawFile_SkipsHeaderAndBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f_response_time")
	row := testutil.RawRow{Utilization: 0.4, ResponseTime: 123, StdDev: 5, NetworkDelay: 2}
	testutil.WriteFile(t, path, testutil.RawHeader+"\n"+row.Line()+"\r\n\n")

	samples, err := ReadRawFile(path)

	require.NoError(t, err)
	assert.Equal(t, []RawSample{{Utilization: 0.4, ResponseTime: 123, ResponseTimeStdDev: 5, NetworkDelay: 2}}, samples)
}

func TestRawColumn_PositionsMatchSimulatorLayout(t *testing.T) {
	assert.Equal(t, 3, RawColumn("utilization"))
	assert.Equal(t, 5, RawColumn("response_time_stddev"))
	assert.Equal(t, 7, RawColumn("response_time"))
	assert.Equal(t, 10, RawColumn("network_delay"))
}

func TestMeanStdDev_EdgeCases(t *testing.T) {
	m, s := MeanStdDev(nil)
	assert.Equal(t, 0.0, m)
	assert.Equal(t, 0.0, s)

	m, s = MeanStdDev([]float64{42})
	assert.Equal(t, 42.0, m)
	assert.Equal(t, 0.0, s)

	m, s = MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, m, 1e-12)
	assert.InDelta(t, 2.138089935299395, s, 1e-12)
}
