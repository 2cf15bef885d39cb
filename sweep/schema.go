package sweep

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// rawColumns is the column layout of a simulator result file, in file order.
// Only the named columns are read; reserved ones are carried by the simulator
// for its own reports.
var rawColumns = []string{
	"n", // job count; the header row carries the literal "n"
	"reserved_2",
	"utilization",
	"reserved_4",
	"response_time_stddev",
	"reserved_6",
	"response_time",
	"reserved_8",
	"reserved_9",
	"network_delay",
}

const headerToken = "n"

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(rawColumns))
	for i, name := range rawColumns {
		m[name] = i
	}
	return m
}()

// RawColumn returns the 1-indexed file position of a named raw column, the
// form the plot descriptor's "using" clauses need.
func RawColumn(name string) int {
	i, ok := columnIndex[name]
	if !ok {
		panic("unknown raw column " + name)
	}
	return i + 1
}

// RawSample is one data row of a raw result file.
type RawSample struct {
	Utilization        float64
	ResponseTime       float64
	ResponseTimeStdDev float64
	NetworkDelay       float64
}

// ReadRawFile parses every data row of a raw result file. A missing file is a
// MissingResultFileError; short rows and non-numeric values are
// MalformedRecordErrors. Blank lines are ignored.
func ReadRawFile(path string) ([]RawSample, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &MissingResultFileError{Path: path}
		}
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer func() { _ = f.Close() }()

	var samples []RawSample
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if fields[0] == headerToken {
			continue
		}
		if len(fields) < len(rawColumns) {
			return nil, &MalformedRecordError{
				Path:   path,
				Line:   line,
				Reason: "expected at least " + strconv.Itoa(len(rawColumns)) + " fields, got " + strconv.Itoa(len(fields)),
			}
		}
		s, err := parseRawRow(fields, path, line)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return samples, nil
}

func parseRawRow(fields []string, path string, line int) (RawSample, error) {
	var parseErr error
	get := func(name string) float64 {
		if parseErr != nil {
			return 0
		}
		raw := strings.TrimSpace(fields[columnIndex[name]])
		v, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil:
			parseErr = &MalformedRecordError{Path: path, Line: line, Column: name, Reason: "not a number: " + strconv.Quote(raw)}
		case math.IsNaN(v) || math.IsInf(v, 0):
			// ParseFloat accepts NaN and Inf; neither groups or averages.
			parseErr = &MalformedRecordError{Path: path, Line: line, Column: name, Reason: "not a finite number: " + strconv.Quote(raw)}
		}
		return v
	}
	s := RawSample{
		Utilization:        get("utilization"),
		ResponseTime:       get("response_time"),
		ResponseTimeStdDev: get("response_time_stddev"),
		NetworkDelay:       get("network_delay"),
	}
	return s, parseErr
}
