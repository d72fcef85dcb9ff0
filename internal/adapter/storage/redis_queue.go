package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

const (
	pendingKey    = "jobs:pending"
	processingKey = "jobs:processing"
)

// requeueScript moves everything parked on the processing list back to the
// pending list in one atomic step. Run at startup so jobs in flight when the
// previous process died get redelivered.
var requeueScript = redis.NewScript(`
local moved = 0
while true do
	local v = redis.call('RPOPLPUSH', KEYS[2], KEYS[1])
	if not v then
		return moved
	end
	moved = moved + 1
end
`)

// envelope wraps a job with a per-delivery nonce so the raw message is
// unique on the processing list and LREM removes exactly one entry.
type envelope struct {
	Nonce string          `json:"nonce"`
	Job   domain.RetryJob `json:"job"`
}

// RedisQueue is the durable port.JobQueue: LPUSH to publish, BLMOVE into a
// processing list to receive, LREM to ack. Anything received but never
// acked survives on the processing list until RecoverInFlight.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Publish(ctx context.Context, job domain.RetryJob) error {
	raw, err := json.Marshal(envelope{Nonce: uuid.NewString(), Job: job})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, pendingKey, raw).Err(); err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Receive(ctx context.Context, maxBatch int, wait time.Duration) ([]port.QueuedJob, error) {
	raw, err := q.client.BLMove(ctx, pendingKey, processingKey, "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receive job: %w", err)
	}

	batch := make([]string, 0, maxBatch)
	batch = append(batch, raw)
	for len(batch) < maxBatch {
		more, err := q.client.LMove(ctx, pendingKey, processingKey, "RIGHT", "LEFT").Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("receive job: %w", err)
		}
		batch = append(batch, more)
	}

	jobs := make([]port.QueuedJob, 0, len(batch))
	for _, msg := range batch {
		var env envelope
		if err := json.Unmarshal([]byte(msg), &env); err != nil {
			// Unparseable message: drop it from processing so it cannot
			// wedge the queue forever.
			q.client.LRem(ctx, processingKey, 1, msg)
			continue
		}
		// The raw message is the ack handle.
		jobs = append(jobs, port.QueuedJob{Job: env.Job, Handle: msg})
	}
	return jobs, nil
}

func (q *RedisQueue) Ack(ctx context.Context, handle string) error {
	if err := q.client.LRem(ctx, processingKey, 1, handle).Err(); err != nil {
		return fmt.Errorf("ack job: %w", err)
	}
	return nil
}

// RecoverInFlight republishes jobs stranded on the processing list by a
// previous run. Returns how many were moved.
func (q *RedisQueue) RecoverInFlight(ctx context.Context) (int, error) {
	moved, err := requeueScript.Run(ctx, q.client, []string{pendingKey, processingKey}).Int()
	if err != nil {
		return 0, fmt.Errorf("recover in-flight jobs: %w", err)
	}
	return moved, nil
}

var _ port.JobQueue = (*RedisQueue)(nil)
