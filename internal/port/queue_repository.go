package port

import (
	"context"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
)

// QueuedJob is a delivered job plus the opaque handle needed to ack it.
type QueuedJob struct {
	Job    domain.RetryJob
	Handle string
}

// JobQueue is a durable at-least-once delivery channel for retry jobs.
// Ordering is not guaranteed across jobs; a job leaves the queue only
// through Ack. Retry bookkeeping (attempt counts, backoff) is domain data
// carried in the job itself, not a queue feature.
type JobQueue interface {
	Publish(ctx context.Context, job domain.RetryJob) error

	// Receive long-polls for up to wait and returns at most maxBatch jobs.
	// An empty slice with a nil error means the wait elapsed quietly.
	Receive(ctx context.Context, maxBatch int, wait time.Duration) ([]QueuedJob, error)

	Ack(ctx context.Context, handle string) error
}
