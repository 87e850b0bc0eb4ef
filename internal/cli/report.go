package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/tracking/report"
)

var reportSince time.Duration

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize time spent per zone and per category",
	Run:   runReport,
}

func init() {
	reportCmd.Flags().DurationVar(&reportSince, "since", 0, "only visits entered within this window, e.g. 720h")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	filter, _ := visitFilter("", reportSince, 0, time.Now())

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	zones, err := store.Zones().List(ctx)
	if err != nil {
		slog.Error("Failed to list zones", "error", err)
		os.Exit(1)
	}
	logs, err := store.Visits().List(ctx, filter)
	if err != nil {
		slog.Error("Failed to list visits", "error", err)
		os.Exit(1)
	}
	writeReport(os.Stdout, report.Summarize(zones, logs))
}

func writeReport(out io.Writer, s report.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ZONE\tCATEGORY\tVISITS\tTOTAL\tNOTE")
	for _, z := range s.Zones {
		note := ""
		switch {
		case z.Orphaned:
			note = "deleted zone"
		case z.MatchedByName:
			note = "matched by name"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", z.ZoneName, z.Category, z.Visits, z.Formatted, note)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CATEGORY\tVISITS\tTOTAL")
	for _, c := range s.Categories {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", c.Category, c.Visits, c.Formatted)
	}
	_, _ = fmt.Fprintf(w, "all\t%d\t%s\n", s.Visits, domain.FormatDuration(s.Total))
	_ = w.Flush()
}
