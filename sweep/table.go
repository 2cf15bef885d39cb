package sweep

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

func fixed(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }

// WriteSummaryTable prints aggregate records as a console table, one row per
// (probe ratio, utilization).
func WriteSummaryTable(w io.Writer, aggs []RatioAggregate) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Probe ratio", "Utilization", "Mean response (ms)", "Std dev", "Samples"})
	for _, a := range aggs {
		for _, rec := range a.Records {
			table.Append([]string{
				a.Ratio.Title(),
				fixed(rec.Utilization, 3),
				fixed(rec.MeanResponseTime, 3),
				fixed(rec.StdDevResponseTime, 3),
				strconv.Itoa(rec.Samples),
			})
		}
	}
	table.Render()
}

// WriteGridTable prints the sweep grid.
func WriteGridTable(w io.Writer, grid []GridPoint) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Probe ratio", "Level", "Arrival delay (ms)", "Network delay (ms)"})
	for _, gp := range grid {
		table.Append([]string{
			gp.ProbeRatio.Title(),
			strconv.Itoa(gp.UtilizationIndex),
			fixed(gp.ArrivalDelay, 6),
			strconv.Itoa(gp.NetworkDelay),
		})
	}
	table.Render()
}
