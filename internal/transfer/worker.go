package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/luma-pay/luma_pay/internal/account"
	"github.com/luma-pay/luma_pay/internal/authorizer"
	"github.com/luma-pay/luma_pay/internal/ledger"
	"github.com/luma-pay/luma_pay/internal/notification"
)

// Worker drives a scheduled transfer to its terminal status. It asks the
// external authorizer for a decision and either settles the reservation or
// releases it back to the payer. Re-invoking the worker on a terminal
// transfer is a no-op, which keeps at-least-once job delivery safe.
type Worker struct {
	ledger     ledger.Ledger
	accounts   account.Repository
	authorizer authorizer.Client
	notifier   notification.Notifier
	logger     *slog.Logger
}

// NewWorker constructs a settlement worker.
func NewWorker(ledgerBackend ledger.Ledger, accounts account.Repository, auth authorizer.Client, notifier notification.Notifier, logger *slog.Logger) *Worker {
	return &Worker{ledger: ledgerBackend, accounts: accounts, authorizer: auth, notifier: notifier, logger: logger}
}

// Process runs one settlement attempt for the transfer.
//
// Only an explicit positive decision settles; denial, transport failure,
// timeout and malformed responses all release the reservation. A transfer
// scheduled for a future date is left untouched for a later sweep.
func (w *Worker) Process(ctx context.Context, transferID uuid.UUID) error {
	tr, err := w.ledger.Get(ctx, transferID)
	if err != nil {
		return fmt.Errorf("load transfer %s: %w", transferID, err)
	}
	if tr.Terminal() {
		return nil
	}
	if tr.SchedulingDate.After(time.Now().UTC()) {
		w.logger.Debug("transfer not due yet", "transfer_id", tr.ID, "scheduling_date", tr.SchedulingDate)
		return nil
	}

	decision, err := w.authorizer.Authorize(ctx, authorizer.Request{
		TransferID: tr.ID,
		PayerID:    tr.PayerID,
		PayeeID:    tr.PayeeID,
		Amount:     tr.Amount,
	})
	if err != nil {
		w.logger.Warn("authorizer unavailable, treating as denial", "transfer_id", tr.ID, "error", err)
	}

	if err != nil || !decision.Authorized {
		return w.release(ctx, tr)
	}
	return w.settle(ctx, tr)
}

func (w *Worker) settle(ctx context.Context, tr ledger.Transfer) error {
	payer, err := w.accounts.FindByID(ctx, tr.PayerID.String())
	if err != nil {
		return fmt.Errorf("load payer %s: %w", tr.PayerID, err)
	}
	payee, err := w.accounts.FindByID(ctx, tr.PayeeID.String())
	if err != nil {
		return fmt.Errorf("load payee %s: %w", tr.PayeeID, err)
	}

	res, err := w.ledger.Settle(ctx, tr.ID, payer.Name, payee.Name)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyFinal) {
			return nil
		}
		return fmt.Errorf("settle transfer %s: %w", tr.ID, err)
	}

	w.logger.Info("transfer finalized", "transfer_id", tr.ID, "amount", tr.Amount,
		"payer_available", res.PayerAvailable, "payee_available", res.PayeeAvailable)

	// Settlement is committed; notification failures are logged and swallowed.
	w.notify(ctx, notification.Message{
		Kind:        notification.KindTransferSent,
		Destination: payer.ID,
		Body:        fmt.Sprintf("You sent %d to %s", tr.Amount, payee.Name),
	})
	w.notify(ctx, notification.Message{
		Kind:        notification.KindTransferReceived,
		Destination: payee.ID,
		Body:        fmt.Sprintf("You received %d from %s", tr.Amount, payer.Name),
	})

	return nil
}

func (w *Worker) release(ctx context.Context, tr ledger.Transfer) error {
	if _, err := w.ledger.Release(ctx, tr.ID); err != nil {
		if errors.Is(err, ledger.ErrAlreadyFinal) {
			return nil
		}
		return fmt.Errorf("release transfer %s: %w", tr.ID, err)
	}
	w.logger.Info("transfer unauthorized, reservation released", "transfer_id", tr.ID, "amount", tr.Amount)
	return nil
}

func (w *Worker) notify(ctx context.Context, msg notification.Message) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Send(ctx, msg); err != nil {
		w.logger.Warn("notification failed", "kind", msg.Kind, "destination", msg.Destination, "error", err)
	}
}

// Sweep processes every scheduled transfer that is due. It backs the
// maintenance cycle that settles future-dated transfers and retries
// transfers whose handoff or processing previously failed.
func (w *Worker) Sweep(ctx context.Context) error {
	ids, err := w.ledger.ListDue(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("list due transfers: %w", err)
	}
	for _, id := range ids {
		if err := w.Process(ctx, id); err != nil {
			w.logger.Error("sweep transfer", "transfer_id", id, "error", err)
		}
	}
	return nil
}
