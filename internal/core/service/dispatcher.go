package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ndvu2901/factory-sim/internal/core/domain"
	"github.com/ndvu2901/factory-sim/internal/port"
)

const (
	// DefaultMaxAttempts caps deliveries per job before dead-lettering.
	DefaultMaxAttempts = 5

	DefaultBatchSize   = 16
	DefaultReceiveWait = 2 * time.Second

	handlerTimeout = 10 * time.Second

	// republishRetries bounds the extra Publish attempts when requeueing a
	// failed job before giving up and leaving the original in flight.
	republishRetries = 3
)

// HandlerFunc processes one job delivery. Delivery is at-least-once, so
// handlers must tolerate seeing the same payload again.
type HandlerFunc func(ctx context.Context, job domain.RetryJob) error

// Dispatcher pulls jobs off the queue and routes them to handlers by type.
// A failed delivery is republished with the attempt count incremented, then
// the original is acked, so an old attempt number can never overtake a newer
// one. Once the cap is reached the job is acked away with a terminal log.
type Dispatcher struct {
	queue       port.JobQueue
	handlers    map[domain.JobType]HandlerFunc
	maxAttempts int
	batchSize   int
	receiveWait time.Duration
	log         *zap.Logger
}

func NewDispatcher(queue port.JobQueue, maxAttempts, batchSize int, receiveWait time.Duration, log *zap.Logger) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if receiveWait <= 0 {
		receiveWait = DefaultReceiveWait
	}
	return &Dispatcher{
		queue:       queue,
		handlers:    make(map[domain.JobType]HandlerFunc),
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		receiveWait: receiveWait,
		log:         log,
	}
}

// Register installs the handler for a job type. Last registration wins.
func (d *Dispatcher) Register(t domain.JobType, h HandlerFunc) {
	d.handlers[t] = h
}

// Run receives and dispatches until the context is cancelled. Quiet stretches
// back off exponentially; any delivered batch resets the backoff.
func (d *Dispatcher) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			return
		}

		batch, err := d.queue.Receive(ctx, d.batchSize, d.receiveWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.log.Warn("receive failed", zap.Error(err))
			d.sleep(ctx, bo.NextBackOff())
			continue
		}
		if len(batch) == 0 {
			d.sleep(ctx, bo.NextBackOff())
			continue
		}
		bo.Reset()

		for _, qj := range batch {
			d.dispatch(ctx, qj)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, qj port.QueuedJob) {
	job := qj.Job

	handler, ok := d.handlers[job.Type]
	if !ok {
		d.log.Error("no handler for job type, dead-lettering",
			zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)))
		d.ack(ctx, qj)
		return
	}

	err := d.invoke(ctx, handler, job)
	if err == nil {
		d.ack(ctx, qj)
		return
	}

	next := job.Attempt + 1
	if next >= d.maxAttempts {
		d.log.Error("job exhausted retries, dead-lettering",
			zap.String("job_id", job.ID),
			zap.String("job_type", string(job.Type)),
			zap.Int("attempt", job.Attempt),
			zap.ByteString("payload", job.Payload),
			zap.Error(err))
		d.ack(ctx, qj)
		return
	}

	d.log.Warn("job failed, requeueing",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
		zap.Int("attempt", job.Attempt),
		zap.Error(err))

	job.Attempt = next
	if pubErr := d.republish(ctx, job); pubErr != nil {
		// Leave the original unacked. It stays parked in flight and only
		// comes back through startup recovery, which is still better than
		// acking it away and losing the job outright.
		d.log.Error("requeue failed, leaving original in flight until recovery",
			zap.String("job_id", job.ID), zap.Error(pubErr))
		return
	}
	d.ack(ctx, qj)
}

// republish retries the Publish a few times with backoff; a queue outage
// short enough to span the retries costs nothing but latency.
func (d *Dispatcher) republish(ctx context.Context, job domain.RetryJob) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = time.Second
	return backoff.Retry(func() error {
		return d.queue.Publish(ctx, job)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, republishRetries), ctx))
}

// invoke runs the handler with a bounded timeout and turns panics into
// ordinary failures so one bad handler cannot take down the loop.
func (d *Dispatcher) invoke(ctx context.Context, handler HandlerFunc, job domain.RetryJob) (err error) {
	hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(hctx, job)
}

func (d *Dispatcher) ack(ctx context.Context, qj port.QueuedJob) {
	if err := d.queue.Ack(ctx, qj.Handle); err != nil {
		d.log.Error("ack failed", zap.String("job_id", qj.Job.ID), zap.Error(err))
	}
}

func (d *Dispatcher) sleep(ctx context.Context, dur time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(dur):
	}
}
