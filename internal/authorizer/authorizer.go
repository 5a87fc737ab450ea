package authorizer

import (
	"context"

	"github.com/google/uuid"
)

// Request carries the essential facts of a transfer to the external authorizer.
type Request struct {
	TransferID uuid.UUID
	PayerID    uuid.UUID
	PayeeID    uuid.UUID
	Amount     int64
}

// Decision is the authorizer's verdict. Only an explicit Authorized=true
// settles a transfer; callers treat every error path as a denial.
type Decision struct {
	Authorized bool
	Reference  string
}

// Client represents a connector to the external authorization service.
type Client interface {
	Authorize(ctx context.Context, req Request) (Decision, error)
}

// StaticApprover approves every transfer. Used in dev mode and tests.
type StaticApprover struct{}

// Authorize approves the request with a synthetic reference.
func (StaticApprover) Authorize(_ context.Context, _ Request) (Decision, error) {
	return Decision{Authorized: true, Reference: uuid.NewString()}, nil
}

// StaticDenier denies every transfer. Used in tests.
type StaticDenier struct{}

// Authorize denies the request.
func (StaticDenier) Authorize(_ context.Context, _ Request) (Decision, error) {
	return Decision{Authorized: false, Reference: uuid.NewString()}, nil
}
