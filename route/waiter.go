package route

import (
	"context"
	"fmt"
	"time"

	pgroute "github.com/pgstack/go-pgroute"
)

// DefaultPollInterval between replay position probes in WaitCaughtUp.
const DefaultPollInterval = 250 * time.Millisecond

// WaitCaughtUp polls the replica's replay position until it reaches pos or
// ctx expires. Demos and tests synchronize on this instead of sleeping for
// a guessed lag duration. Transient position failures keep the poll going;
// the last one is reported if the deadline wins.
func WaitCaughtUp(ctx context.Context, replica pgroute.Endpoint, pos pgroute.Position, pollInterval time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		replay, err := replica.ReplayPosition(ctx)
		if err == nil && pos.ReachedBy(replay) {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("gave up waiting for replay to reach %s: %w", pos, lastErr)
			}
			return fmt.Errorf("gave up waiting for replay to reach %s: %w", pos, ctx.Err())
		case <-ticker.C:
		}
	}
}
