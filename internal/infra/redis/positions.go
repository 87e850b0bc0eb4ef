package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// positionMessage is the wire form of a position sample.
type positionMessage struct {
	Timestamp *time.Time `json:"timestamp"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
}

// DecodePosition parses and validates one position message.
func DecodePosition(data []byte) (domain.Position, error) {
	var msg positionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Position{}, fmt.Errorf("%w: invalid position payload: %v", domain.ErrValidation, err)
	}
	if msg.Timestamp == nil || msg.Latitude == nil || msg.Longitude == nil {
		return domain.Position{}, fmt.Errorf("%w: position requires timestamp, latitude and longitude", domain.ErrValidation)
	}
	pos := domain.Position{
		Timestamp: msg.Timestamp.UTC(),
		Latitude:  *msg.Latitude,
		Longitude: *msg.Longitude,
	}
	if err := pos.Validate(); err != nil {
		return domain.Position{}, err
	}
	return pos, nil
}

// PositionFeed delivers position samples published on a channel.
type PositionFeed struct {
	client  *Client
	channel string
	log     *slog.Logger
}

// NewPositionFeed creates a feed subscribed to channel.
func NewPositionFeed(client *Client, channel string) *PositionFeed {
	return &PositionFeed{
		client:  client,
		channel: channel,
		log:     slog.Default().With("component", "position_feed", "channel", channel),
	}
}

// Subscribe starts delivering samples until ctx is cancelled. Malformed
// messages are logged and skipped. The returned channel is closed on exit.
func (f *PositionFeed) Subscribe(ctx context.Context) (<-chan domain.Position, error) {
	sub := f.client.rdb.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	out := make(chan domain.Position)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				pos, err := DecodePosition([]byte(msg.Payload))
				if err != nil {
					f.log.Warn("Dropping malformed position", "error", err)
					continue
				}
				select {
				case out <- pos:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	f.log.Info("Subscribed to position feed")
	return out, nil
}

// Publish sends a sample on the feed channel.
func (f *PositionFeed) Publish(ctx context.Context, pos domain.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}
	return f.client.rdb.Publish(ctx, f.channel, data).Err()
}
