package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/zonewatch/internal/core/domain"
	redisclient "github.com/vietddude/zonewatch/internal/infra/redis"
)

var (
	publishLat float64
	publishLng float64
	publishAt  string
	recentN    int
)

var publishCmd = &cobra.Command{
	Use:   "publish-position",
	Short: "Publish one position sample to the Redis position feed",
	Run:   runPublish,
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show the most recent notifications kept in Redis",
	Run:   runNotifications,
}

func init() {
	publishCmd.Flags().Float64Var(&publishLat, "lat", 0, "latitude in degrees")
	publishCmd.Flags().Float64Var(&publishLng, "lng", 0, "longitude in degrees")
	publishCmd.Flags().StringVar(&publishAt, "at", "", "RFC3339 timestamp (default now)")
	_ = publishCmd.MarkFlagRequired("lat")
	_ = publishCmd.MarkFlagRequired("lng")
	notificationsCmd.Flags().IntVar(&recentN, "limit", 20, "number of notifications")

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func parsePosition(lat, lng float64, at string, now time.Time) (domain.Position, error) {
	ts := now.UTC()
	if at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return domain.Position{}, fmt.Errorf("invalid --at: %w", err)
		}
		ts = parsed.UTC()
	}
	pos := domain.Position{Timestamp: ts, Latitude: lat, Longitude: lng}
	return pos, pos.Validate()
}

func openRedis(cfg redisclient.Config) *redisclient.Client {
	if cfg.URL == "" {
		slog.Error("redis.url is not configured")
		os.Exit(1)
	}
	client, err := redisclient.NewClient(cfg)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runPublish(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	pos, err := parsePosition(publishLat, publishLng, publishAt, time.Now())
	if err != nil {
		slog.Error("Invalid position", "error", err)
		os.Exit(1)
	}

	client := openRedis(cfg.Redis)
	defer func() {
		_ = client.Close()
	}()

	feed := redisclient.NewPositionFeed(client, cfg.Redis.PositionsChannel)
	if err := feed.Publish(context.Background(), pos); err != nil {
		slog.Error("Failed to publish position", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Published %.6f,%.6f at %s\n", pos.Latitude, pos.Longitude, pos.Timestamp.Format(time.RFC3339))
}

func runNotifications(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	client := openRedis(cfg.Redis)
	defer func() {
		_ = client.Close()
	}()

	sink := redisclient.NewNotificationSink(client, cfg.Redis.NotificationsChannel)
	recent, err := sink.Recent(context.Background(), recentN)
	if err != nil {
		slog.Error("Failed to read notifications", "error", err)
		os.Exit(1)
	}
	for _, n := range recent {
		fmt.Printf("%s  %s\n", n.At.Format(time.RFC3339), n.Message)
	}
}
