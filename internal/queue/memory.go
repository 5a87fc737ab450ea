package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// ErrQueueClosed indicates the in-process queue no longer accepts jobs.
var ErrQueueClosed = errors.New("queue closed")

// Memory defers settlement to an in-process consumer goroutine.
type Memory struct {
	processor Processor
	logger    *slog.Logger
	jobs      chan uuid.UUID
	done      chan struct{}
}

// NewMemory builds an in-process queue with the given buffer size.
func NewMemory(p Processor, size int, logger *slog.Logger) *Memory {
	if size <= 0 {
		size = 256
	}
	return &Memory{
		processor: p,
		logger:    logger,
		jobs:      make(chan uuid.UUID, size),
		done:      make(chan struct{}),
	}
}

// Enqueue queues the transfer for the consumer goroutine.
func (q *Memory) Enqueue(ctx context.Context, transferID uuid.UUID) error {
	select {
	case q.jobs <- transferID:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes jobs until the context is cancelled. Processing errors are
// logged; the transfer stays scheduled and the maintenance sweep retries it.
func (q *Memory) Run(ctx context.Context) {
	for {
		select {
		case transferID := <-q.jobs:
			if err := q.processor.Process(ctx, transferID); err != nil {
				q.logger.Error("process transfer", "transfer_id", transferID, "error", err)
			}
		case <-ctx.Done():
			close(q.done)
			return
		}
	}
}
