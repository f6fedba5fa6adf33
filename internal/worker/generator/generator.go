// Package generator produces simulated activity deltas, either locally or
// against an external platform API. Generators are stateless between calls;
// all accumulated world state lives in the job record.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"simplane/internal/schedule"
	"simplane/internal/store"
)

// Generator turns scheduling decisions into world-state deltas.
type Generator interface {
	// Bootstrap produces the initial containers and warm-up items for a
	// brand new job.
	Bootstrap(ctx context.Context, cfg store.JobConfig) (*store.Delta, error)

	// Perform executes one activity. subject is the scheduler-selected
	// work item, nil for activities that create rather than mutate.
	Perform(ctx context.Context, activity schedule.ActivityType, subject *store.WorkItem, world *store.WorldState) (*store.Delta, error)

	// Cleanup tears down whatever the generator created externally. It
	// always returns a report; partial failures are collected, not fatal.
	Cleanup(ctx context.Context, world *store.WorldState) *CleanupReport
}

// CleanupReport records what Cleanup managed to remove.
type CleanupReport struct {
	ContainersRemoved int
	ItemsRemoved      int
	Errors            *multierror.Error
}

// Err returns the collected cleanup errors, or nil if everything succeeded.
func (r *CleanupReport) Err() error {
	return r.Errors.ErrorOrNil()
}

// RateLimitError signals that the external platform throttled us and the
// runner should back off for an extended period.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("platform rate limit hit, retry after %s", e.RetryAfter)
	}
	return "platform rate limit hit"
}

// IsRateLimit reports whether err is, or wraps, a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
