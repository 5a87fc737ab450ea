// Package queue hands admitted transfers from the request path to the
// settlement worker. All backends deliver at least once; the worker's
// idempotent terminal transition makes duplicate delivery harmless.
package queue

import (
	"context"

	"github.com/google/uuid"
)

// Dispatcher enqueues a transfer for settlement processing.
type Dispatcher interface {
	Enqueue(ctx context.Context, transferID uuid.UUID) error
}

// Processor consumes a single transfer job. Implemented by the settlement worker.
type Processor interface {
	Process(ctx context.Context, transferID uuid.UUID) error
}

// Inline runs the worker in the caller's own execution context. Outcomes are
// identical to the deferred backends; only the caller's wait time differs.
type Inline struct {
	processor Processor
}

// NewInline builds an inline dispatcher.
func NewInline(p Processor) *Inline {
	return &Inline{processor: p}
}

// Enqueue processes the transfer immediately.
func (q *Inline) Enqueue(ctx context.Context, transferID uuid.UUID) error {
	return q.processor.Process(ctx, transferID)
}
