package transition

import (
	"time"
)

// Metrics holds transition bookkeeping exposed on the detailed health view.
type Metrics struct {
	LastPositionAt     *time.Time   `json:"last_position_at,omitempty"`
	LastSampleAt       *time.Time   `json:"last_sample_at,omitempty"`
	LastTransitionAt   *time.Time   `json:"last_transition_at,omitempty"`
	LastPersistFailure *time.Time   `json:"last_persist_failure,omitempty"`
	PersistFailures    int          `json:"persist_failures"`
	StaleSamples       int          `json:"stale_samples"`
	FutureSamples      int          `json:"future_samples"`
	Anomalies          int          `json:"anomalies"`
	History            []Transition `json:"history"`
}

// HistoryCollector keeps the most recent transitions in a ring buffer.
type HistoryCollector struct {
	windowSize         int
	transitions        []Transition
	lastPositionAt     *time.Time
	lastSampleAt       *time.Time
	lastPersistFailure *time.Time
	persistFailures    int
	staleSamples       int
	futureSamples      int
	anomalies          int
}

// NewHistoryCollector creates a collector keeping at most windowSize transitions.
func NewHistoryCollector(windowSize int) *HistoryCollector {
	if windowSize <= 0 {
		windowSize = 50
	}
	return &HistoryCollector{
		windowSize:  windowSize,
		transitions: make([]Transition, 0, windowSize),
	}
}

// RecordTransition records an applied transition.
func (hc *HistoryCollector) RecordTransition(t Transition) {
	if len(hc.transitions) >= hc.windowSize {
		// Shift elements left, drop oldest
		copy(hc.transitions, hc.transitions[1:])
		hc.transitions[len(hc.transitions)-1] = t
	} else {
		hc.transitions = append(hc.transitions, t)
	}
}

// RecordPosition records when an accepted sample was received and the
// timestamp it carried.
func (hc *HistoryCollector) RecordPosition(receivedAt, sampledAt time.Time) {
	hc.lastPositionAt = &receivedAt
	hc.lastSampleAt = &sampledAt
}

// RecordPersistFailure records a store write that did not commit.
func (hc *HistoryCollector) RecordPersistFailure(at time.Time) {
	hc.persistFailures++
	hc.lastPersistFailure = &at
}

// RecordStale records a dropped out-of-order sample.
func (hc *HistoryCollector) RecordStale() {
	hc.staleSamples++
}

// RecordFuture records a sample dated too far ahead of the clock.
func (hc *HistoryCollector) RecordFuture() {
	hc.futureSamples++
}

// RecordAnomaly records an event that referenced no zone.
func (hc *HistoryCollector) RecordAnomaly() {
	hc.anomalies++
}

// GetMetrics returns a copy of the current metrics.
func (hc *HistoryCollector) GetMetrics() Metrics {
	m := Metrics{
		LastPositionAt:     hc.lastPositionAt,
		LastSampleAt:       hc.lastSampleAt,
		LastPersistFailure: hc.lastPersistFailure,
		PersistFailures:    hc.persistFailures,
		StaleSamples:       hc.staleSamples,
		FutureSamples:      hc.futureSamples,
		Anomalies:          hc.anomalies,
		History:            make([]Transition, len(hc.transitions)),
	}
	copy(m.History, hc.transitions)
	if n := len(hc.transitions); n > 0 {
		at := hc.transitions[n-1].At
		m.LastTransitionAt = &at
	}
	return m
}

// Reset clears all collected metrics.
func (hc *HistoryCollector) Reset() {
	hc.transitions = hc.transitions[:0]
	hc.lastPositionAt = nil
	hc.lastSampleAt = nil
	hc.lastPersistFailure = nil
	hc.persistFailures = 0
	hc.staleSamples = 0
	hc.futureSamples = 0
	hc.anomalies = 0
}
