package transfer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/luma-pay/luma_pay/internal/account"
	"github.com/luma-pay/luma_pay/internal/ledger"
	"github.com/luma-pay/luma_pay/internal/queue"
)

// Admission failure classes. Structural field validation runs before the
// balance check; insufficient funds stays a distinct ledger error so the
// handler can surface it separately.
var (
	// ErrInvalidPayee indicates the payee is missing, unknown or the payer itself.
	ErrInvalidPayee = errors.New("invalid payee")
	// ErrInvalidSchedule indicates a scheduling date before today.
	ErrInvalidSchedule = errors.New("scheduling date must be today or later")
	// ErrInvalidAmount indicates a non-positive transfer amount.
	ErrInvalidAmount = errors.New("amount must be at least 1")
)

// Service admits transfer requests: it validates, reserves funds and hands
// the transfer to the settlement worker. The caller gets the scheduled
// transfer back immediately and never waits on authorization.
type Service struct {
	ledger     ledger.Ledger
	accounts   account.Repository
	dispatcher queue.Dispatcher
	logger     *slog.Logger
}

// NewService constructs the admission service.
func NewService(ledgerBackend ledger.Ledger, accounts account.Repository, dispatcher queue.Dispatcher, logger *slog.Logger) *Service {
	return &Service{ledger: ledgerBackend, accounts: accounts, dispatcher: dispatcher, logger: logger}
}

// SubmitInput captures a transfer request. PayerID is the authenticated
// caller, always passed explicitly.
type SubmitInput struct {
	PayerID        string
	PayeeID        string
	Amount         int64
	SchedulingDate time.Time
	Description    string
}

// Submit validates the request and reserves the funds.
//
// Validation order: payee, scheduling date, amount, then funds. The funds
// precondition is only advisory here; the decisive check runs inside the
// ledger's atomic reservation.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (ledger.Transfer, error) {
	payerID, err := uuid.Parse(input.PayerID)
	if err != nil {
		return ledger.Transfer{}, errors.New("payer identity is required")
	}

	payeeID, err := uuid.Parse(input.PayeeID)
	if err != nil || payeeID == payerID {
		return ledger.Transfer{}, ErrInvalidPayee
	}
	if _, err := s.accounts.FindByID(ctx, payeeID.String()); err != nil {
		return ledger.Transfer{}, ErrInvalidPayee
	}

	today := dateOf(time.Now().UTC())
	schedulingDate := today
	if !input.SchedulingDate.IsZero() {
		schedulingDate = dateOf(input.SchedulingDate)
		if schedulingDate.Before(today) {
			return ledger.Transfer{}, ErrInvalidSchedule
		}
	}

	if input.Amount < 1 {
		return ledger.Transfer{}, ErrInvalidAmount
	}

	tr, err := s.ledger.Admit(ctx, ledger.Transfer{
		PayerID:        payerID,
		PayeeID:        payeeID,
		Amount:         input.Amount,
		SchedulingDate: schedulingDate,
		Description:    input.Description,
	})
	if err != nil {
		return ledger.Transfer{}, err
	}

	// The reservation is committed; a failed handoff only delays settlement
	// until the next maintenance sweep picks the transfer up.
	if err := s.dispatcher.Enqueue(ctx, tr.ID); err != nil {
		s.logger.Warn("enqueue transfer", "transfer_id", tr.ID, "error", err)
	}

	return tr, nil
}

// Get returns one of the caller's transfers.
func (s *Service) Get(ctx context.Context, callerID string, transferID uuid.UUID) (ledger.Transfer, error) {
	tr, err := s.ledger.Get(ctx, transferID)
	if err != nil {
		return ledger.Transfer{}, err
	}
	if tr.PayerID.String() != callerID && tr.PayeeID.String() != callerID {
		return ledger.Transfer{}, ledger.ErrTransferNotFound
	}
	return tr, nil
}

// List returns the caller's submitted transfers.
func (s *Service) List(ctx context.Context, callerID string) ([]ledger.Transfer, error) {
	payerID, err := uuid.Parse(callerID)
	if err != nil {
		return nil, errors.New("payer identity is required")
	}
	return s.ledger.ListByPayer(ctx, payerID)
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
