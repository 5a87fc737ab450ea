package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientFunds occurs when the payer wallet lacks available balance
	// to cover a requested reservation.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletNotFound indicates no wallet exists for the referenced account.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransferNotFound indicates the referenced transfer does not exist.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrAlreadyFinal indicates the transfer already reached a terminal status.
	// Settle and Release treat it as an idempotent no-op signal so that
	// at-least-once job delivery stays safe.
	ErrAlreadyFinal = errors.New("transfer already final")
)

// Transfer statuses. Scheduled is the only non-terminal state; a transfer
// moves exactly once to finalized or unauthorized and never leaves either.
const (
	StatusScheduled    = "scheduled"
	StatusFinalized    = "finalized"
	StatusUnauthorized = "unauthorized"
)

// Extract entry types.
const (
	ExtractIncoming = "incoming"
	ExtractOutgoing = "outgoing"
)

// Statement descriptions reference the counterparty name captured at
// settlement time.
const (
	extractOutgoingText = "Transfer sent to "
	extractIncomingText = "Transfer received from "
)

// Balance is a point-in-time view of one wallet. Available funds are
// spendable; blocked funds are reserved for in-flight transfers.
type Balance struct {
	AccountID uuid.UUID
	Available int64
	Blocked   int64
	AsOf      time.Time
}

// Transfer is one request to move Amount from payer to payee.
type Transfer struct {
	ID             uuid.UUID
	PayerID        uuid.UUID
	PayeeID        uuid.UUID
	Amount         int64
	SchedulingDate time.Time
	Status         string
	Description    string
	CreatedAt      time.Time
}

// Terminal reports whether the transfer reached a final status.
func (t Transfer) Terminal() bool {
	return t.Status == StatusFinalized || t.Status == StatusUnauthorized
}

// Extract is an immutable statement line recording one side of a finalized
// transfer. CurrentValue is the account's available balance immediately
// after the settlement that produced the entry.
type Extract struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	TransferID   uuid.UUID
	Value        int64
	Type         string
	CurrentValue int64
	Description  string
	CreatedAt    time.Time
}

// Settlement captures the outcome of finalizing a transfer.
type Settlement struct {
	Transfer       Transfer
	PayerAvailable int64
	PayeeAvailable int64
}

// Ledger is the contract implemented by ledger backends (e.g. Postgres).
//
// Admit, Settle and Release are each one atomic unit: the balance mutation,
// the transfer row write and (for Settle) the extract rows commit together
// or not at all. Implementations serialize operations touching the same
// wallet.
type Ledger interface {
	// EnsureWallet provisions a zero-or-seeded wallet for the account if none exists.
	EnsureWallet(ctx context.Context, accountID uuid.UUID, seed int64) error

	// Balance returns the wallet balances for the account.
	Balance(ctx context.Context, accountID uuid.UUID) (Balance, error)

	// Admit inserts the transfer with status scheduled and reserves the
	// amount on the payer wallet (available to blocked). The funds check is
	// re-evaluated under the same lock that performs the mutation; it fails
	// with ErrInsufficientFunds, leaving no partial state.
	Admit(ctx context.Context, tr Transfer) (Transfer, error)

	// Settle moves the blocked amount into the payee's available balance,
	// writes the outgoing/incoming extract pair and marks the transfer
	// finalized. Counterparty names are baked into the extract descriptions.
	Settle(ctx context.Context, transferID uuid.UUID, payerName, payeeName string) (Settlement, error)

	// Release returns the blocked amount to the payer's available balance
	// and marks the transfer unauthorized. No extracts are written.
	Release(ctx context.Context, transferID uuid.UUID) (Transfer, error)

	// Get fetches a single transfer.
	Get(ctx context.Context, transferID uuid.UUID) (Transfer, error)

	// ListByPayer returns transfers submitted by the account, newest first.
	ListByPayer(ctx context.Context, payerID uuid.UUID) ([]Transfer, error)

	// ListDue returns ids of scheduled transfers whose scheduling date is on
	// or before now, for the maintenance sweep.
	ListDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// Extracts returns the account's statement entries, newest first.
	Extracts(ctx context.Context, accountID uuid.UUID) ([]Extract, error)
}
