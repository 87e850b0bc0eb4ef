package recovery

import (
	"context"
	"fmt"
	"time"
)

// Do runs op until it succeeds, the strategy gives up, or ctx is done.
// attempt counts retries already made, so the first call is attempt 0.
func Do(ctx context.Context, strategy RetryStrategy, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if strategy == nil || !strategy.ShouldRetry(err, attempt+1) {
			return err
		}

		timer := time.NewTimer(strategy.GetDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", err)
		case <-timer.C:
		}
	}
}
