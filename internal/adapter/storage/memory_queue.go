package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

// MemoryQueue is an in-process port.JobQueue with the same
// receive-then-ack contract as the Redis queue: delivered jobs stay
// in-flight until acked and come back on Nack-less redelivery only through
// an explicit republish.
type MemoryQueue struct {
	mu       sync.Mutex
	backlog  []port.QueuedJob
	inflight map[string]port.QueuedJob
	notify   chan struct{}
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		inflight: make(map[string]port.QueuedJob),
		notify:   make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Publish(ctx context.Context, job domain.RetryJob) error {
	q.mu.Lock()
	// Handle is unique per delivery attempt so acking an old delivery can
	// never remove a republished one.
	handle := fmt.Sprintf("%s#%d", job.ID, job.Attempt)
	q.backlog = append(q.backlog, port.QueuedJob{Job: job, Handle: handle})
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, maxBatch int, wait time.Duration) ([]port.QueuedJob, error) {
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	for {
		if batch := q.take(maxBatch); len(batch) > 0 {
			return batch, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, nil
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) take(maxBatch int) []port.QueuedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.backlog)
	if n == 0 {
		return nil
	}
	if n > maxBatch {
		n = maxBatch
	}
	batch := make([]port.QueuedJob, n)
	copy(batch, q.backlog[:n])
	q.backlog = append([]port.QueuedJob(nil), q.backlog[n:]...)
	for _, qj := range batch {
		q.inflight[qj.Handle] = qj
	}
	return batch
}

func (q *MemoryQueue) Ack(ctx context.Context, handle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, handle)
	return nil
}

// Len reports backlog plus in-flight jobs.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog) + len(q.inflight)
}

var _ port.JobQueue = (*MemoryQueue)(nil)
