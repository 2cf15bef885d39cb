package sweep

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Series is one plotted curve: a line through (XCol, YCol) of Source plus error
// bars from ErrCol.
type Series struct {
	Source         string // data file, relative to the descriptor's directory
	Title          string
	Style          int
	XCol, YCol     int
	ErrCol         int
	LineWidth      int
	ErrorLineWidth int
	Records        []AggregateRecord // same data as Source, for in-process renderers
}

// PlotSpec describes a chart independently of the renderer that draws it.
type PlotSpec struct {
	Terminal   string // gnuplot terminal line
	Size       string // optional gnuplot "set size" argument
	Output     string // rendered artifact path
	XLabel     string
	YLabel     string
	YMin, YMax float64
	Title      string
	Key        string // gnuplot "set key" argument
	Series     []Series
}

const postscriptTerminal = "postscript color 'Helvetica' 14"

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// gnuplotQuote wraps s in single quotes, doubling embedded quotes.
func gnuplotQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// WriteGnuplot renders spec as a gnuplot script.
func WriteGnuplot(w io.Writer, spec PlotSpec) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...interface{}) { _, _ = fmt.Fprintf(bw, format, args...) }

	p("set terminal %s\n", spec.Terminal)
	if spec.Size != "" {
		p("set size %s\n", spec.Size)
	}
	p("set output %s\n", gnuplotQuote(spec.Output))
	p("set xlabel %s\n", gnuplotQuote(spec.XLabel))
	p("set ylabel %s\n", gnuplotQuote(spec.YLabel))
	p("set yrange [%s:%s]\n", fmtNum(spec.YMin), fmtNum(spec.YMax))
	p("set grid ytics\n")
	if spec.Title != "" {
		p("set title %s\n", gnuplotQuote(spec.Title))
	}
	if spec.Key != "" {
		p("set key %s\n", spec.Key)
	}
	p("plot ")
	for i, s := range spec.Series {
		if i > 0 {
			p(", \\\n")
		}
		src := gnuplotQuote(s.Source)
		p("%s using %d:%d title %s lc %d lw %d with l,\\\n", src, s.XCol, s.YCol, gnuplotQuote(s.Title), s.Style, s.LineWidth)
		p("%s using %d:%d:%d notitle lt %d lw %d with errorbars", src, s.XCol, s.YCol, s.ErrCol, s.Style, s.ErrorLineWidth)
	}
	p("\n")
	return bw.Flush()
}
