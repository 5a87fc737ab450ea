package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/luma-pay/luma_pay/internal/authorizer"
	"github.com/luma-pay/luma_pay/internal/ledger"
	"github.com/luma-pay/luma_pay/internal/logging"
	"github.com/luma-pay/luma_pay/internal/notification"
)

type unreachableAuthorizer struct{}

func (unreachableAuthorizer) Authorize(_ context.Context, _ authorizer.Request) (authorizer.Decision, error) {
	return authorizer.Decision{}, errors.New("connection refused")
}

type failingNotifier struct {
	attempts int
}

func (n *failingNotifier) Send(_ context.Context, _ notification.Message) error {
	n.attempts++
	return errors.New("notifier unreachable")
}

type countingNotifier struct {
	messages []notification.Message
}

func (n *countingNotifier) Send(_ context.Context, msg notification.Message) error {
	n.messages = append(n.messages, msg)
	return nil
}

func admit(t *testing.T, f fixture, amount int64, schedulingDate time.Time) ledger.Transfer {
	t.Helper()
	svc := NewService(f.ledger, f.accounts, &heldQueue{}, logging.Discard())
	tr, err := svc.Submit(context.Background(), SubmitInput{
		PayerID: f.payer.ID, PayeeID: f.payee.ID, Amount: amount, SchedulingDate: schedulingDate,
	})
	if err != nil {
		t.Fatalf("admit transfer: %v", err)
	}
	return tr
}

func TestWorkerSettlesApprovedTransfer(t *testing.T) {
	f := newFixture(t, 1_000)
	tr := admit(t, f, 100, time.Time{})
	notifier := &countingNotifier{}
	w := NewWorker(f.ledger, f.accounts, authorizer.StaticApprover{}, notifier, logging.Discard())

	if err := w.Process(context.Background(), tr.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := f.ledger.Get(context.Background(), tr.ID)
	if got.Status != ledger.StatusFinalized {
		t.Fatalf("expected finalized, got %s", got.Status)
	}

	pb, _ := f.ledger.Balance(context.Background(), tr.PayerID)
	eb, _ := f.ledger.Balance(context.Background(), tr.PayeeID)
	if pb.Available != 900 || pb.Blocked != 0 || eb.Available != 100 || eb.Blocked != 0 {
		t.Fatalf("bad balances: payer=%+v payee=%+v", pb, eb)
	}

	out, _ := f.ledger.Extracts(context.Background(), tr.PayerID)
	in, _ := f.ledger.Extracts(context.Background(), tr.PayeeID)
	if len(out) != 1 || len(in) != 1 {
		t.Fatalf("expected one extract per party, got payer=%d payee=%d", len(out), len(in))
	}
	if out[0].CurrentValue != 900 || in[0].CurrentValue != 100 {
		t.Fatalf("bad running balances: out=%d in=%d", out[0].CurrentValue, in[0].CurrentValue)
	}

	if len(notifier.messages) != 2 {
		t.Fatalf("expected both parties notified, got %d messages", len(notifier.messages))
	}
}

func TestWorkerReleasesDeniedTransfer(t *testing.T) {
	f := newFixture(t, 1_000)
	tr := admit(t, f, 150, time.Time{})
	w := NewWorker(f.ledger, f.accounts, authorizer.StaticDenier{}, &countingNotifier{}, logging.Discard())

	if err := w.Process(context.Background(), tr.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := f.ledger.Get(context.Background(), tr.ID)
	if got.Status != ledger.StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %s", got.Status)
	}

	pb, _ := f.ledger.Balance(context.Background(), tr.PayerID)
	if pb.Available != 1_000 || pb.Blocked != 0 {
		t.Fatalf("payer not restored: %+v", pb)
	}
	eb, _ := f.ledger.Balance(context.Background(), tr.PayeeID)
	if eb.Available != 0 {
		t.Fatalf("payee touched: %+v", eb)
	}
	if extracts, _ := f.ledger.Extracts(context.Background(), tr.PayerID); len(extracts) != 0 {
		t.Fatalf("denied transfer wrote extracts: %d", len(extracts))
	}
}

func TestWorkerTreatsAuthorizerFailureAsDenial(t *testing.T) {
	f := newFixture(t, 1_000)
	tr := admit(t, f, 150, time.Time{})
	w := NewWorker(f.ledger, f.accounts, unreachableAuthorizer{}, &countingNotifier{}, logging.Discard())

	if err := w.Process(context.Background(), tr.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := f.ledger.Get(context.Background(), tr.ID)
	if got.Status != ledger.StatusUnauthorized {
		t.Fatalf("expected unauthorized on authorizer failure, got %s", got.Status)
	}
	pb, _ := f.ledger.Balance(context.Background(), tr.PayerID)
	if pb.Available != 1_000 || pb.Blocked != 0 {
		t.Fatalf("payer not restored: %+v", pb)
	}
}

func TestWorkerNotificationFailureDoesNotAffectOutcome(t *testing.T) {
	f := newFixture(t, 1_000)
	tr := admit(t, f, 100, time.Time{})
	notifier := &failingNotifier{}
	w := NewWorker(f.ledger, f.accounts, authorizer.StaticApprover{}, notifier, logging.Discard())

	if err := w.Process(context.Background(), tr.ID); err != nil {
		t.Fatalf("process must swallow notification failures: %v", err)
	}

	got, _ := f.ledger.Get(context.Background(), tr.ID)
	if got.Status != ledger.StatusFinalized {
		t.Fatalf("expected finalized despite notifier outage, got %s", got.Status)
	}
	if notifier.attempts != 2 {
		t.Fatalf("expected 2 notification attempts, got %d", notifier.attempts)
	}
	in, _ := f.ledger.Extracts(context.Background(), tr.PayeeID)
	if len(in) != 1 {
		t.Fatalf("extracts missing despite finalize: %d", len(in))
	}
}

func TestWorkerIsIdempotentOnTerminalTransfers(t *testing.T) {
	f := newFixture(t, 1_000)
	tr := admit(t, f, 100, time.Time{})
	notifier := &countingNotifier{}
	w := NewWorker(f.ledger, f.accounts, authorizer.StaticApprover{}, notifier, logging.Discard())

	if err := w.Process(context.Background(), tr.ID); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if err := w.Process(context.Background(), tr.ID); err != nil {
		t.Fatalf("duplicate process must be a no-op: %v", err)
	}

	pb, _ := f.ledger.Balance(context.Background(), tr.PayerID)
	eb, _ := f.ledger.Balance(context.Background(), tr.PayeeID)
	if pb.Available != 900 || eb.Available != 100 {
		t.Fatalf("balances changed by duplicate delivery: payer=%+v payee=%+v", pb, eb)
	}
	if in, _ := f.ledger.Extracts(context.Background(), tr.PayeeID); len(in) != 1 {
		t.Fatalf("duplicate delivery duplicated extracts: %d", len(in))
	}
	if len(notifier.messages) != 2 {
		t.Fatalf("duplicate delivery re-notified: %d messages", len(notifier.messages))
	}
}

func TestWorkerHoldsFutureDatedTransfers(t *testing.T) {
	f := newFixture(t, 1_000)
	future := time.Now().UTC().Add(72 * time.Hour)
	tr := admit(t, f, 100, future)
	w := NewWorker(f.ledger, f.accounts, authorizer.StaticApprover{}, &countingNotifier{}, logging.Discard())

	if err := w.Process(context.Background(), tr.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := f.ledger.Get(context.Background(), tr.ID)
	if got.Status != ledger.StatusScheduled {
		t.Fatalf("future transfer must stay scheduled, got %s", got.Status)
	}
	pb, _ := f.ledger.Balance(context.Background(), tr.PayerID)
	if pb.Available != 900 || pb.Blocked != 100 {
		t.Fatalf("reservation must stay in place: %+v", pb)
	}
}

func TestWorkerSweepProcessesDueTransfers(t *testing.T) {
	f := newFixture(t, 1_000)
	due := admit(t, f, 100, time.Time{})
	future := admit(t, f, 200, time.Now().UTC().Add(72*time.Hour))
	w := NewWorker(f.ledger, f.accounts, authorizer.StaticApprover{}, &countingNotifier{}, logging.Discard())

	if err := w.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	gotDue, _ := f.ledger.Get(context.Background(), due.ID)
	if gotDue.Status != ledger.StatusFinalized {
		t.Fatalf("due transfer not settled by sweep: %s", gotDue.Status)
	}
	gotFuture, _ := f.ledger.Get(context.Background(), future.ID)
	if gotFuture.Status != ledger.StatusScheduled {
		t.Fatalf("future transfer settled early: %s", gotFuture.Status)
	}
}

func TestWorkerUnknownTransfer(t *testing.T) {
	f := newFixture(t, 1_000)
	w := NewWorker(f.ledger, f.accounts, authorizer.StaticApprover{}, &countingNotifier{}, logging.Discard())

	if err := w.Process(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown transfer")
	}
}
