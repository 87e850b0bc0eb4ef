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
	"github.com/vietddude/zonewatch/internal/tracking/region"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every zone and whether a visit is in progress",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	zones, err := store.Zones().List(ctx)
	if err != nil {
		slog.Error("Failed to list zones", "error", err)
		os.Exit(1)
	}

	writeStatus(os.Stdout, zones, time.Now())

	limit := cfg.Tracking.MaxRegions
	if limit <= 0 {
		limit = region.DefaultMaxRegions
	}
	monitored := min(len(zones), limit)
	fmt.Printf("\n%d zones, %d monitored natively (ceiling %d), %d inside\n",
		len(zones), monitored, limit, countInside(zones))
}

func writeStatus(out io.Writer, zones []*domain.Zone, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ZONE\tCATEGORY\tRADIUS\tSTATE\tSINCE")

	for _, z := range zones {
		state, since := "outside", "-"
		if z.Inside() {
			state = "inside"
			since = fmt.Sprintf("%s (%s)", z.ActiveEntry.Format(time.RFC3339),
				domain.FormatDuration(now.Sub(*z.ActiveEntry)))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%.0fm\t%s\t%s\n", z.Name, z.Category, z.Radius, state, since)
	}
	_ = w.Flush()
}

func countInside(zones []*domain.Zone) int {
	n := 0
	for _, z := range zones {
		if z.Inside() {
			n++
		}
	}
	return n
}
