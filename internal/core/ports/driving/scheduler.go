package driving

import "context"

// Scheduler re-runs syncs of registered targets at a fixed interval.
type Scheduler interface {
	// Add registers a target. Targets added after Start are picked up on
	// the next check.
	Add(target *SyncTarget)

	// Start begins running scheduled syncs.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the loop and waits for running syncs.
	Stop() error
}
