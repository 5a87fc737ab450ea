package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type walletState struct {
	available int64
	blocked   int64
}

type inMemoryLedger struct {
	mu        sync.Mutex
	wallets   map[uuid.UUID]*walletState
	transfers map[uuid.UUID]Transfer
	extracts  []Extract
}

// NewInMemory creates a concurrency-safe in-memory ledger for development
// and unit tests. A single mutex serializes all wallet mutations, which
// gives the same total ordering per wallet the Postgres row locks provide.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		wallets:   make(map[uuid.UUID]*walletState),
		transfers: make(map[uuid.UUID]Transfer),
	}
}

func (l *inMemoryLedger) EnsureWallet(_ context.Context, accountID uuid.UUID, seed int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.wallets[accountID]; !exists {
		l.wallets[accountID] = &walletState{available: seed}
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, accountID uuid.UUID) (Balance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.wallets[accountID]
	if !ok {
		return Balance{}, ErrWalletNotFound
	}
	return Balance{AccountID: accountID, Available: w.available, Blocked: w.blocked, AsOf: time.Now().UTC()}, nil
}

func (l *inMemoryLedger) Admit(_ context.Context, tr Transfer) (Transfer, error) {
	if tr.Amount <= 0 {
		return Transfer{}, ErrInsufficientFunds
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	payer, ok := l.wallets[tr.PayerID]
	if !ok {
		return Transfer{}, ErrWalletNotFound
	}
	if _, ok := l.wallets[tr.PayeeID]; !ok {
		return Transfer{}, ErrWalletNotFound
	}
	if payer.available < tr.Amount {
		return Transfer{}, ErrInsufficientFunds
	}

	payer.available -= tr.Amount
	payer.blocked += tr.Amount

	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	tr.Status = StatusScheduled
	tr.CreatedAt = time.Now().UTC()
	l.transfers[tr.ID] = tr
	return tr, nil
}

func (l *inMemoryLedger) Settle(_ context.Context, transferID uuid.UUID, payerName, payeeName string) (Settlement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tr, ok := l.transfers[transferID]
	if !ok {
		return Settlement{}, ErrTransferNotFound
	}
	if tr.Terminal() {
		return Settlement{Transfer: tr}, ErrAlreadyFinal
	}

	payer := l.wallets[tr.PayerID]
	payee := l.wallets[tr.PayeeID]
	if payer == nil || payee == nil {
		return Settlement{}, ErrWalletNotFound
	}
	if payer.blocked < tr.Amount {
		return Settlement{}, ErrInsufficientFunds
	}

	payer.blocked -= tr.Amount
	payee.available += tr.Amount

	now := time.Now().UTC()
	l.extracts = append(l.extracts,
		Extract{
			ID:           uuid.New(),
			AccountID:    tr.PayerID,
			TransferID:   tr.ID,
			Value:        tr.Amount,
			Type:         ExtractOutgoing,
			CurrentValue: payer.available,
			Description:  extractOutgoingText + payeeName,
			CreatedAt:    now,
		},
		Extract{
			ID:           uuid.New(),
			AccountID:    tr.PayeeID,
			TransferID:   tr.ID,
			Value:        tr.Amount,
			Type:         ExtractIncoming,
			CurrentValue: payee.available,
			Description:  extractIncomingText + payerName,
			CreatedAt:    now,
		},
	)

	tr.Status = StatusFinalized
	l.transfers[tr.ID] = tr
	return Settlement{Transfer: tr, PayerAvailable: payer.available, PayeeAvailable: payee.available}, nil
}

func (l *inMemoryLedger) Release(_ context.Context, transferID uuid.UUID) (Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tr, ok := l.transfers[transferID]
	if !ok {
		return Transfer{}, ErrTransferNotFound
	}
	if tr.Terminal() {
		return tr, ErrAlreadyFinal
	}

	payer := l.wallets[tr.PayerID]
	if payer == nil {
		return Transfer{}, ErrWalletNotFound
	}
	if payer.blocked < tr.Amount {
		return Transfer{}, ErrInsufficientFunds
	}

	payer.blocked -= tr.Amount
	payer.available += tr.Amount

	tr.Status = StatusUnauthorized
	l.transfers[tr.ID] = tr
	return tr, nil
}

func (l *inMemoryLedger) Get(_ context.Context, transferID uuid.UUID) (Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tr, ok := l.transfers[transferID]
	if !ok {
		return Transfer{}, ErrTransferNotFound
	}
	return tr, nil
}

func (l *inMemoryLedger) ListByPayer(_ context.Context, payerID uuid.UUID) ([]Transfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var transfers []Transfer
	for _, tr := range l.transfers {
		if tr.PayerID == payerID {
			transfers = append(transfers, tr)
		}
	}
	return transfers, nil
}

func (l *inMemoryLedger) ListDue(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []uuid.UUID
	for _, tr := range l.transfers {
		if tr.Status == StatusScheduled && !tr.SchedulingDate.After(now) {
			ids = append(ids, tr.ID)
		}
	}
	return ids, nil
}

func (l *inMemoryLedger) Extracts(_ context.Context, accountID uuid.UUID) ([]Extract, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var extracts []Extract
	for i := len(l.extracts) - 1; i >= 0; i-- {
		if l.extracts[i].AccountID == accountID {
			extracts = append(extracts, l.extracts[i])
		}
	}
	return extracts, nil
}
