package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Kind distinguishes arrival and departure notifications.
type Kind string

const (
	KindArrival   Kind = "arrival"
	KindDeparture Kind = "departure"
)

// Notification is one user-visible message.
type Notification struct {
	Kind     Kind      `json:"kind"`
	ZoneName string    `json:"zone_name"`
	Duration string    `json:"duration,omitempty"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// ArrivalMessage renders the arrival template.
func ArrivalMessage(zoneName string) string {
	return fmt.Sprintf("Arrived at %s: tracking started", zoneName)
}

// DepartureMessage renders the departure template.
func DepartureMessage(zoneName, formattedDuration string) string {
	return fmt.Sprintf("Left %s: duration %s", zoneName, formattedDuration)
}

// Sink delivers notifications somewhere the user can see them.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a sink writing to logger, or the default logger when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{log: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, n Notification) error {
	s.log.InfoContext(ctx, n.Message, "kind", n.Kind, "zone", n.ZoneName)
	return nil
}
