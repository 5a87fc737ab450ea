package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}

func TestInMemoryLedger_AdmitReservesFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	payer := uuid.New()
	payee := uuid.New()
	SeedWallet(l, payer, 1_000)
	SeedWallet(l, payee, 0)

	tr, err := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: 100, SchedulingDate: today()})
	if err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	if tr.Status != StatusScheduled {
		t.Fatalf("expected status scheduled, got %s", tr.Status)
	}

	b, err := l.Balance(ctx, payer)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Available != 900 || b.Blocked != 100 {
		t.Fatalf("expected available=900 blocked=100, got available=%d blocked=%d", b.Available, b.Blocked)
	}
}

func TestInMemoryLedger_AdmitInsufficientFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	payer := uuid.New()
	payee := uuid.New()
	SeedWallet(l, payer, 50)
	SeedWallet(l, payee, 0)

	if _, err := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: 100, SchedulingDate: today()}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	b, _ := l.Balance(ctx, payer)
	if b.Available != 50 || b.Blocked != 0 {
		t.Fatalf("wallet mutated on failed admission: %+v", b)
	}
	if transfers, _ := l.ListByPayer(ctx, payer); len(transfers) != 0 {
		t.Fatalf("expected no transfer row, got %d", len(transfers))
	}
}

func TestInMemoryLedger_SettleMovesBlockedToPayee(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	payer := uuid.New()
	payee := uuid.New()
	SeedWallet(l, payer, 1_000)
	SeedWallet(l, payee, 0)

	tr, err := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: 100, SchedulingDate: today()})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	res, err := l.Settle(ctx, tr.ID, "Alice", "Bob")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Transfer.Status != StatusFinalized {
		t.Fatalf("expected finalized, got %s", res.Transfer.Status)
	}
	if res.PayerAvailable != 900 || res.PayeeAvailable != 100 {
		t.Fatalf("unexpected settlement balances: %+v", res)
	}

	pb, _ := l.Balance(ctx, payer)
	if pb.Available != 900 || pb.Blocked != 0 {
		t.Fatalf("payer wallet wrong after settle: %+v", pb)
	}
	eb, _ := l.Balance(ctx, payee)
	if eb.Available != 100 || eb.Blocked != 0 {
		t.Fatalf("payee wallet wrong after settle: %+v", eb)
	}
}

func TestInMemoryLedger_SettleWritesExtractPair(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	payer := uuid.New()
	payee := uuid.New()
	SeedWallet(l, payer, 1_000)
	SeedWallet(l, payee, 0)

	tr, _ := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: 100, SchedulingDate: today()})
	if _, err := l.Settle(ctx, tr.ID, "Alice", "Bob"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	out, err := l.Extracts(ctx, payer)
	if err != nil {
		t.Fatalf("extracts payer: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 payer extract, got %d", len(out))
	}
	if out[0].Type != ExtractOutgoing || out[0].Value != 100 || out[0].CurrentValue != 900 {
		t.Fatalf("bad outgoing extract: %+v", out[0])
	}
	if out[0].Description != "Transfer sent to Bob" {
		t.Fatalf("bad outgoing description: %q", out[0].Description)
	}

	in, _ := l.Extracts(ctx, payee)
	if len(in) != 1 {
		t.Fatalf("expected 1 payee extract, got %d", len(in))
	}
	if in[0].Type != ExtractIncoming || in[0].Value != 100 || in[0].CurrentValue != 100 {
		t.Fatalf("bad incoming extract: %+v", in[0])
	}
	if in[0].Description != "Transfer received from Alice" {
		t.Fatalf("bad incoming description: %q", in[0].Description)
	}
}

func TestInMemoryLedger_ReleaseRestoresPayer(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	payer := uuid.New()
	payee := uuid.New()
	SeedWallet(l, payer, 1_000)
	SeedWallet(l, payee, 0)

	tr, _ := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: 150, SchedulingDate: today()})
	released, err := l.Release(ctx, tr.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != StatusUnauthorized {
		t.Fatalf("expected unauthorized, got %s", released.Status)
	}

	pb, _ := l.Balance(ctx, payer)
	if pb.Available != 1_000 || pb.Blocked != 0 {
		t.Fatalf("payer not restored: %+v", pb)
	}
	eb, _ := l.Balance(ctx, payee)
	if eb.Available != 0 || eb.Blocked != 0 {
		t.Fatalf("payee touched by release: %+v", eb)
	}
	if extracts, _ := l.Extracts(ctx, payer); len(extracts) != 0 {
		t.Fatalf("release must not write extracts, got %d", len(extracts))
	}
}

func TestInMemoryLedger_TerminalTransitionsAreSingleShot(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	payer := uuid.New()
	payee := uuid.New()
	SeedWallet(l, payer, 1_000)
	SeedWallet(l, payee, 0)

	tr, _ := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: 100, SchedulingDate: today()})
	if _, err := l.Settle(ctx, tr.ID, "Alice", "Bob"); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if _, err := l.Settle(ctx, tr.ID, "Alice", "Bob"); !errors.Is(err, ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal on second settle, got %v", err)
	}
	if _, err := l.Release(ctx, tr.ID); !errors.Is(err, ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal on release after settle, got %v", err)
	}

	pb, _ := l.Balance(ctx, payer)
	eb, _ := l.Balance(ctx, payee)
	if pb.Available != 900 || eb.Available != 100 {
		t.Fatalf("balances changed by duplicate terminal transition: payer=%+v payee=%+v", pb, eb)
	}
	if extracts, _ := l.Extracts(ctx, payee); len(extracts) != 1 {
		t.Fatalf("duplicate extracts written: %d", len(extracts))
	}
}

func TestInMemoryLedger_ConcurrentAdmissionsConserveFunds(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	payer := uuid.New()
	payee := uuid.New()
	SeedWallet(l, payer, 100_000)
	SeedWallet(l, payee, 0)

	const workers = 20
	const amount = int64(500)

	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr, err := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: amount, SchedulingDate: today()})
			if err != nil {
				t.Errorf("admit %d failed: %v", i, err)
				return
			}
			ids[i] = tr.ID
		}(i)
	}
	wg.Wait()

	for i, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, err := l.Settle(ctx, id, "Alice", fmt.Sprintf("Payee %d", i)); err != nil {
			t.Fatalf("settle %d: %v", i, err)
		}
	}

	pb, _ := l.Balance(ctx, payer)
	eb, _ := l.Balance(ctx, payee)
	if pb.Available+pb.Blocked+eb.Available != 100_000 {
		t.Fatalf("funds not conserved: payer=%+v payee=%+v", pb, eb)
	}
	if pb.Available < 0 || pb.Blocked < 0 || eb.Available < 0 {
		t.Fatalf("negative balance observed: payer=%+v payee=%+v", pb, eb)
	}
}

func TestInMemoryLedger_ListDueSkipsFutureDates(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	payer := uuid.New()
	payee := uuid.New()
	SeedWallet(l, payer, 1_000)
	SeedWallet(l, payee, 0)

	due, _ := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: 100, SchedulingDate: today()})
	future, _ := l.Admit(ctx, Transfer{PayerID: payer, PayeeID: payee, Amount: 100, SchedulingDate: today().Add(72 * time.Hour)})

	ids, err := l.ListDue(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(ids) != 1 || ids[0] != due.ID {
		t.Fatalf("expected only %s due, got %v (future=%s)", due.ID, ids, future.ID)
	}
}
