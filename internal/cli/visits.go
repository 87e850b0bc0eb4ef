package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vietddude/zonewatch/internal/core/domain"
	"github.com/vietddude/zonewatch/internal/infra/storage"
)

var (
	visitsZone  string
	visitsSince time.Duration
	visitsLimit int
	clearYes    bool
)

var visitsCmd = &cobra.Command{
	Use:   "visits",
	Short: "List recorded visits",
	Run:   runVisits,
}

var clearVisitsCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded visit",
	Run:   runClearVisits,
}

func init() {
	visitsCmd.Flags().StringVar(&visitsZone, "zone", "", "only visits of this zone id")
	visitsCmd.Flags().DurationVar(&visitsSince, "since", 0, "only visits entered within this window, e.g. 168h")
	visitsCmd.Flags().IntVar(&visitsLimit, "limit", 50, "maximum number of visits")
	clearVisitsCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")

	visitsCmd.AddCommand(clearVisitsCmd)
	rootCmd.AddCommand(visitsCmd)
}

func visitFilter(zone string, since time.Duration, limit int, now time.Time) (storage.VisitLogFilter, error) {
	filter := storage.VisitLogFilter{Limit: limit}
	if zone != "" {
		id, err := uuid.Parse(zone)
		if err != nil {
			return filter, fmt.Errorf("invalid zone id %q: %w", zone, err)
		}
		filter.ZoneIDs = []uuid.UUID{id}
	}
	if since > 0 {
		filter.From = now.Add(-since)
	}
	return filter, nil
}

func runVisits(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	filter, err := visitFilter(visitsZone, visitsSince, visitsLimit, time.Now())
	if err != nil {
		slog.Error("Invalid filter", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	logs, err := store.Visits().List(ctx, filter)
	if err != nil {
		slog.Error("Failed to list visits", "error", err)
		os.Exit(1)
	}
	writeVisits(os.Stdout, logs)
}

func writeVisits(out io.Writer, logs []*domain.VisitLog) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ZONE\tENTRY\tEXIT\tDURATION")
	for _, l := range logs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.ZoneName,
			l.Entry.Format(time.RFC3339), l.Exit.Format(time.RFC3339), domain.FormatDuration(l.Duration()))
	}
	_ = w.Flush()
}

func runClearVisits(cmd *cobra.Command, args []string) {
	if !clearYes {
		fmt.Println("Refusing to delete visits without --yes")
		os.Exit(1)
	}
	cfg := loadConfig()

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	n, err := store.Visits().Count(ctx)
	if err != nil {
		slog.Error("Failed to count visits", "error", err)
		os.Exit(1)
	}
	if err := store.Visits().DeleteAll(ctx); err != nil {
		slog.Error("Failed to clear visits", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %d visits\n", n)
}
