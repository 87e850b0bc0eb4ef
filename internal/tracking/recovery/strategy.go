package recovery

import (
	"errors"
	"math"
	"time"

	"github.com/vietddude/zonewatch/internal/core/domain"
)

// FailureCategory tells the strategy whether an error is worth retrying.
type FailureCategory int

const (
	CategoryTransient FailureCategory = iota
	CategoryPermanent
)

// Classifier maps an error to a failure category.
type Classifier func(err error) FailureCategory

// RetryStrategy defines how retries should be handled.
type RetryStrategy interface {
	// GetDelay returns the delay for the given attempt (0-indexed).
	GetDelay(attempt int) time.Duration

	// ShouldRetry checks if we should retry based on the error and attempt count.
	ShouldRetry(err error, attempt int) bool
}

// ExponentialBackoff implements a standard backoff strategy.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Classifier   Classifier
}

// DefaultBackoff returns defaults for store writes: 100ms, 200ms, 400ms (max 2s).
func DefaultBackoff(classifier Classifier) *ExponentialBackoff {
	if classifier == nil {
		classifier = ClassifyStoreError
	}
	return &ExponentialBackoff{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		MaxAttempts:  3,
		Classifier:   classifier,
	}
}

// ClassifyStoreError treats validation and lookup failures as permanent;
// everything else (connection loss, lock timeouts) is retried.
func ClassifyStoreError(err error) FailureCategory {
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) {
		return CategoryPermanent
	}
	return CategoryTransient
}

// GetDelay calculates delay: InitialDelay * 2^attempt
func (s *ExponentialBackoff) GetDelay(attempt int) time.Duration {
	delay := float64(s.InitialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry checks if error is transient and max attempts not exceeded.
func (s *ExponentialBackoff) ShouldRetry(err error, attempt int) bool {
	if attempt >= s.MaxAttempts {
		return false
	}

	category := s.Classifier(err)
	return category == CategoryTransient
}
