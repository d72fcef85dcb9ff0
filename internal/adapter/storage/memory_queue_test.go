package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
)

func publishN(t *testing.T, q *MemoryQueue, n int) []domain.RetryJob {
	t.Helper()
	jobs := make([]domain.RetryJob, 0, n)
	for i := 0; i < n; i++ {
		job, err := domain.NewRetryJob(domain.JobBalanceFetch, domain.BalanceFetchPayload{})
		require.NoError(t, err)
		require.NoError(t, q.Publish(context.Background(), job))
		jobs = append(jobs, job)
	}
	return jobs
}

func TestMemoryQueue_PublishReceiveAck(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	jobs := publishN(t, q, 2)
	assert.Equal(t, 2, q.Len())

	batch, err := q.Receive(ctx, 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, jobs[0].ID, batch[0].Job.ID, "FIFO order")
	assert.Equal(t, 2, q.Len(), "in-flight jobs still count")

	for _, qj := range batch {
		require.NoError(t, q.Ack(ctx, qj.Handle))
	}
	assert.Equal(t, 0, q.Len())
}

func TestMemoryQueue_ReceiveRespectsBatchSize(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	publishN(t, q, 5)

	batch, err := q.Receive(ctx, 3, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, batch, 3)

	batch, err = q.Receive(ctx, 3, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestMemoryQueue_ReceiveTimesOutEmpty(t *testing.T) {
	q := NewMemoryQueue()

	start := time.Now()
	batch, err := q.Receive(context.Background(), 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, batch)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMemoryQueue_ReceiveWakesOnPublish(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, err := domain.NewRetryJob(domain.JobBalanceFetch, domain.BalanceFetchPayload{})
	require.NoError(t, err)
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Publish(ctx, job)
	}()

	batch, err := q.Receive(ctx, 10, 5*time.Second)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestMemoryQueue_ReceiveHonorsContext(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := q.Receive(ctx, 10, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryQueue_HandleDistinguishesAttempts(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, err := domain.NewRetryJob(domain.JobPayment, domain.PaymentPayload{To: "x", Amount: 1, Reference: "r"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, job))

	batch, err := q.Receive(ctx, 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	// Republish the next attempt before acking the first delivery, the way
	// the dispatcher does.
	retry := job
	retry.Attempt++
	require.NoError(t, q.Publish(ctx, retry))
	require.NoError(t, q.Ack(ctx, batch[0].Handle))

	assert.Equal(t, 1, q.Len(), "ack of the old delivery must not remove the retry")

	batch, err = q.Receive(ctx, 10, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 1, batch[0].Job.Attempt)
}
