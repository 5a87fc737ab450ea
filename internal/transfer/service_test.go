package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/luma-pay/luma_pay/internal/account"
	"github.com/luma-pay/luma_pay/internal/authorizer"
	"github.com/luma-pay/luma_pay/internal/ledger"
	"github.com/luma-pay/luma_pay/internal/logging"
	"github.com/luma-pay/luma_pay/internal/notification"
	"github.com/luma-pay/luma_pay/internal/queue"
)

// heldQueue records enqueued transfers without processing them, so tests can
// observe the state between admission and settlement.
type heldQueue struct {
	ids []uuid.UUID
}

func (q *heldQueue) Enqueue(_ context.Context, transferID uuid.UUID) error {
	q.ids = append(q.ids, transferID)
	return nil
}

type fixture struct {
	ledger   ledger.Ledger
	accounts account.Repository
	payer    account.Account
	payee    account.Account
}

func newFixture(t *testing.T, payerBalance int64) fixture {
	t.Helper()
	led := ledger.NewInMemory()
	repo := account.NewMemoryRepository()
	accounts := account.NewService(repo, led)
	ctx := context.Background()

	payer, err := accounts.Register(ctx, account.RegisterInput{
		Kind: account.KindUser, Name: "Alice", Email: "alice@example.com",
		Document: "76401429038", Password: "alice-secret", InitialBalance: payerBalance,
	})
	if err != nil {
		t.Fatalf("register payer: %v", err)
	}
	payee, err := accounts.Register(ctx, account.RegisterInput{
		Kind: account.KindMerchant, Name: "Bob's Store", Email: "bob@store.io",
		Document: "12914027000179", Password: "store-secret",
	})
	if err != nil {
		t.Fatalf("register payee: %v", err)
	}

	return fixture{ledger: led, accounts: repo, payer: payer, payee: payee}
}

func TestSubmitReservesFundsAndEnqueues(t *testing.T) {
	f := newFixture(t, 1_000)
	held := &heldQueue{}
	svc := NewService(f.ledger, f.accounts, held, logging.Discard())
	ctx := context.Background()

	tr, err := svc.Submit(ctx, SubmitInput{PayerID: f.payer.ID, PayeeID: f.payee.ID, Amount: 100})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if tr.Status != ledger.StatusScheduled {
		t.Fatalf("expected scheduled, got %s", tr.Status)
	}

	b, _ := f.ledger.Balance(ctx, tr.PayerID)
	if b.Available != 900 || b.Blocked != 100 {
		t.Fatalf("expected available=900 blocked=100 after admission, got %+v", b)
	}
	if len(held.ids) != 1 || held.ids[0] != tr.ID {
		t.Fatalf("transfer not handed to the queue: %v", held.ids)
	}
}

func TestSubmitValidationOrder(t *testing.T) {
	f := newFixture(t, 1_000)
	svc := NewService(f.ledger, f.accounts, &heldQueue{}, logging.Discard())
	ctx := context.Background()

	cases := []struct {
		name  string
		input SubmitInput
		want  error
	}{
		{
			name:  "unknown payee",
			input: SubmitInput{PayerID: f.payer.ID, PayeeID: uuid.NewString(), Amount: 100},
			want:  ErrInvalidPayee,
		},
		{
			name:  "self transfer",
			input: SubmitInput{PayerID: f.payer.ID, PayeeID: f.payer.ID, Amount: 100},
			want:  ErrInvalidPayee,
		},
		{
			name: "past scheduling date",
			input: SubmitInput{
				PayerID: f.payer.ID, PayeeID: f.payee.ID, Amount: 100,
				SchedulingDate: time.Now().UTC().Add(-48 * time.Hour),
			},
			want: ErrInvalidSchedule,
		},
		{
			name:  "zero amount",
			input: SubmitInput{PayerID: f.payer.ID, PayeeID: f.payee.ID, Amount: 0},
			want:  ErrInvalidAmount,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// No reservation may survive a rejected admission.
	b, _ := f.ledger.Balance(ctx, uuid.MustParse(f.payer.ID))
	if b.Available != 1_000 || b.Blocked != 0 {
		t.Fatalf("wallet mutated by rejected admissions: %+v", b)
	}
}

func TestSubmitInsufficientFunds(t *testing.T) {
	f := newFixture(t, 50)
	svc := NewService(f.ledger, f.accounts, &heldQueue{}, logging.Discard())
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{PayerID: f.payer.ID, PayeeID: f.payee.ID, Amount: 100})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	b, _ := f.ledger.Balance(ctx, uuid.MustParse(f.payer.ID))
	if b.Available != 50 || b.Blocked != 0 {
		t.Fatalf("wallet mutated by rejected admission: %+v", b)
	}
	transfers, _ := svc.List(ctx, f.payer.ID)
	if len(transfers) != 0 {
		t.Fatalf("expected no transfer row, got %d", len(transfers))
	}
}

func TestSubmitInlineSettlesEndToEnd(t *testing.T) {
	f := newFixture(t, 1_000)
	worker := NewWorker(f.ledger, f.accounts, authorizer.StaticApprover{}, notification.NewLoggerNotifier(logging.Discard()), logging.Discard())
	svc := NewService(f.ledger, f.accounts, queue.NewInline(worker), logging.Discard())
	ctx := context.Background()

	tr, err := svc.Submit(ctx, SubmitInput{PayerID: f.payer.ID, PayeeID: f.payee.ID, Amount: 100})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := svc.Get(ctx, f.payer.ID, tr.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ledger.StatusFinalized {
		t.Fatalf("expected finalized after inline processing, got %s", got.Status)
	}

	pb, _ := f.ledger.Balance(ctx, tr.PayerID)
	eb, _ := f.ledger.Balance(ctx, tr.PayeeID)
	if pb.Available != 900 || pb.Blocked != 0 || eb.Available != 100 {
		t.Fatalf("unexpected balances after inline settle: payer=%+v payee=%+v", pb, eb)
	}
}

func TestGetHidesForeignTransfers(t *testing.T) {
	f := newFixture(t, 1_000)
	svc := NewService(f.ledger, f.accounts, &heldQueue{}, logging.Discard())
	ctx := context.Background()

	tr, err := svc.Submit(ctx, SubmitInput{PayerID: f.payer.ID, PayeeID: f.payee.ID, Amount: 100})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Get(ctx, uuid.NewString(), tr.ID); !errors.Is(err, ledger.ErrTransferNotFound) {
		t.Fatalf("expected not found for stranger, got %v", err)
	}
	if _, err := svc.Get(ctx, f.payee.ID, tr.ID); err != nil {
		t.Fatalf("payee should see the transfer: %v", err)
	}
}
