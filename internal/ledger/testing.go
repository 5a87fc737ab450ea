package ledger

import "github.com/google/uuid"

// SeedWallet is a test helper that creates a wallet with the given available
// balance when using the in-memory ledger.
func SeedWallet(l Ledger, accountID uuid.UUID, available int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.wallets[accountID] = &walletState{available: available}
	}
}
