package cmd

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/probe-sweep/sweep"
	"github.com/inference-sim/probe-sweep/sweep/catalog"
)

var catalogFile string // SQLite catalog to read

var catalogCmd = &cobra.Command{
	Use:   "catalog [run-id]",
	Short: "List recorded runs, or the aggregate records of one run",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cat, err := catalog.Open(ctx, catalogFile)
		if err != nil {
			logrus.Fatalf("Cannot open catalog: %v", err)
		}
		defer func() { _ = cat.Close() }()

		if len(args) == 0 {
			runs, err := cat.Runs(ctx)
			if err != nil {
				logrus.Fatalf("Listing runs: %v", err)
			}
			writeRunsTable(cmd.OutOrStdout(), runs)
			return
		}
		rows, err := cat.Records(ctx, args[0])
		if err != nil {
			logrus.Fatalf("Reading run %s: %v", args[0], err)
		}
		if len(rows) == 0 {
			logrus.Warnf("No aggregate records for run %s", args[0])
		}
		writeRowsTable(cmd.OutOrStdout(), rows)
	},
}

func writeRunsTable(w io.Writer, runs []sweep.RunInfo) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Name", "Trials", "Normalized", "Started"})
	for _, r := range runs {
		table.Append([]string{
			r.ID, r.Name, strconv.Itoa(r.Trials),
			strconv.FormatBool(r.Normalize), r.StartedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}

func writeRowsTable(w io.Writer, rows []catalog.Row) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Probe ratio", "Utilization", "Mean response (ms)", "Std dev", "Samples"})
	for _, r := range rows {
		ratio := r.ProbeRatio
		if r.Ideal {
			ratio = "ideal"
		}
		table.Append([]string{
			ratio,
			strconv.FormatFloat(r.Utilization, 'f', 3, 64),
			strconv.FormatFloat(r.Mean, 'f', 3, 64),
			strconv.FormatFloat(r.StdDev, 'f', 3, 64),
			strconv.Itoa(r.Samples),
		})
	}
	table.Render()
}

func init() {
	catalogCmd.Flags().StringVar(&catalogFile, "catalog", "", "SQLite catalog written by run/aggregate --catalog")
	_ = catalogCmd.MarkFlagRequired("catalog")
	rootCmd.AddCommand(catalogCmd)
}
