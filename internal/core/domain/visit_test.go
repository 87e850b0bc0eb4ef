package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewVisitLog(t *testing.T) {
	z := validZone()
	entry := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	log, err := NewVisitLog(z, entry, entry.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("NewVisitLog failed: %v", err)
	}
	if log.ZoneID != z.ID || log.ZoneName != "Office" {
		t.Errorf("unexpected zone reference: %+v", log)
	}
	if log.Duration() != 5*time.Minute {
		t.Errorf("expected 5m, got %v", log.Duration())
	}

	if _, err := NewVisitLog(z, entry, entry); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for zero duration, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{time.Minute, "1m"},
		{12*time.Minute + 30*time.Second, "12m"},
		{time.Hour + 5*time.Minute, "1h 05m"},
		{26 * time.Hour, "26h 00m"},
		{-time.Second, "0s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
