// Package testutil provides shared test infrastructure for the sweep packages:
// raw result file fixtures and float assertion helpers.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// RawHeader is a simulator result header row.
const RawHeader = "n\tdelay\tutilization\tjobs\tstddev\tmin\tmedian\tmax\tp99\tnetwork_delay"

// RawRow is one data row of a simulator result file.
type RawRow struct {
	Utilization  float64
	ResponseTime float64
	StdDev       float64
	NetworkDelay float64
}

// Line renders the row with the simulator's column layout.
func (r RawRow) Line() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return strings.Join([]string{
		"200", "1.0", f(r.Utilization), "0", f(r.StdDev),
		"0", f(r.ResponseTime), "0", "0", f(r.NetworkDelay),
	}, "\t")
}

// WriteRawFile writes a header plus rows to path, creating parent directories.
func WriteRawFile(t *testing.T, path string, rows ...RawRow) {
	t.Helper()
	lines := []string{RawHeader}
	for _, r := range rows {
		lines = append(lines, r.Line())
	}
	WriteFile(t, path, strings.Join(lines, "\n")+"\n")
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
