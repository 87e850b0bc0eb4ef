package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vietddude/zonewatch/internal/tracking/notify"
)

// RecentNotifications is how many delivered notifications are kept for status.
const RecentNotifications = 100

// NotificationSink publishes notifications on a channel and keeps the most
// recent ones in a capped list.
type NotificationSink struct {
	client  *Client
	channel string
}

var _ notify.Sink = (*NotificationSink)(nil)

// NewNotificationSink creates a sink publishing on channel.
func NewNotificationSink(client *Client, channel string) *NotificationSink {
	return &NotificationSink{client: client, channel: channel}
}

func (s *NotificationSink) Name() string { return "redis" }

// Send publishes n and records it in the recent list.
func (s *NotificationSink) Send(ctx context.Context, n notify.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	pipe := s.client.rdb.TxPipeline()
	pipe.Publish(ctx, s.channel, data)
	pipe.LPush(ctx, recentKey(s.channel), data)
	pipe.LTrim(ctx, recentKey(s.channel), 0, RecentNotifications-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Recent returns up to limit notifications, newest first.
func (s *NotificationSink) Recent(ctx context.Context, limit int) ([]notify.Notification, error) {
	if limit <= 0 || limit > RecentNotifications {
		limit = RecentNotifications
	}
	raw, err := s.client.rdb.LRange(ctx, recentKey(s.channel), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}

	out := make([]notify.Notification, 0, len(raw))
	for _, item := range raw {
		var n notify.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}
