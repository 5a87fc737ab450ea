package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists wallets, transfers and extracts in PostgreSQL.
// Wallet rows are locked with SELECT ... FOR UPDATE so reservation,
// settlement and release on the same wallet are totally ordered.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureWallet creates the wallet row for the account if missing.
func (l *PostgresLedger) EnsureWallet(ctx context.Context, accountID uuid.UUID, seed int64) error {
	if seed < 0 {
		return fmt.Errorf("seed must not be negative")
	}
	_, err := l.db.Exec(ctx, `INSERT INTO wallets (account_id, available_balance, blocked_balance, created_at)
        VALUES ($1, $2, 0, $3) ON CONFLICT (account_id) DO NOTHING`, accountID, seed, time.Now().UTC())
	return err
}

// Balance returns the wallet balances for the account.
func (l *PostgresLedger) Balance(ctx context.Context, accountID uuid.UUID) (Balance, error) {
	row := l.db.QueryRow(ctx, `SELECT available_balance, blocked_balance FROM wallets WHERE account_id = $1`, accountID)
	b := Balance{AccountID: accountID, AsOf: time.Now().UTC()}
	if err := row.Scan(&b.Available, &b.Blocked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrWalletNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// Admit reserves funds on the payer wallet and records the transfer, both in
// one transaction. The payer row stays locked from the funds check through
// the mutation, so a concurrent admission cannot double-spend.
func (l *PostgresLedger) Admit(ctx context.Context, tr Transfer) (Transfer, error) {
	if tr.Amount <= 0 {
		return Transfer{}, fmt.Errorf("amount must be positive")
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transfer{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	available, err := lockWallet(ctx, tx, tr.PayerID)
	if err != nil {
		return Transfer{}, err
	}

	var payeeExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE account_id = $1)`, tr.PayeeID).Scan(&payeeExists); err != nil {
		return Transfer{}, err
	}
	if !payeeExists {
		return Transfer{}, ErrWalletNotFound
	}

	if available.Available < tr.Amount {
		return Transfer{}, ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets
        SET available_balance = available_balance - $1, blocked_balance = blocked_balance + $1
        WHERE account_id = $2`, tr.Amount, tr.PayerID); err != nil {
		return Transfer{}, err
	}

	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	tr.Status = StatusScheduled
	tr.CreatedAt = time.Now().UTC()

	if _, err := tx.Exec(ctx, `INSERT INTO transfers (id, payer_id, payee_id, amount, scheduling_date, status, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tr.ID, tr.PayerID, tr.PayeeID, tr.Amount, tr.SchedulingDate, tr.Status, tr.Description, tr.CreatedAt); err != nil {
		return Transfer{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transfer{}, err
	}
	return tr, nil
}

// Settle finalizes the transfer: payer blocked balance drops by the amount,
// payee available balance rises by it, both extract rows are written with
// post-settlement balances, and the status flips to finalized. A transfer
// that is already terminal returns ErrAlreadyFinal without any mutation.
func (l *PostgresLedger) Settle(ctx context.Context, transferID uuid.UUID, payerName, payeeName string) (Settlement, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Settlement{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tr, err := lockTransfer(ctx, tx, transferID)
	if err != nil {
		return Settlement{}, err
	}
	if tr.Terminal() {
		return Settlement{Transfer: tr}, ErrAlreadyFinal
	}

	if err := lockWalletPair(ctx, tx, tr.PayerID, tr.PayeeID); err != nil {
		return Settlement{}, err
	}

	var payerBlocked int64
	if err := tx.QueryRow(ctx, `SELECT blocked_balance FROM wallets WHERE account_id = $1`, tr.PayerID).Scan(&payerBlocked); err != nil {
		return Settlement{}, err
	}
	if payerBlocked < tr.Amount {
		return Settlement{}, fmt.Errorf("blocked balance %d below transfer amount %d", payerBlocked, tr.Amount)
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET blocked_balance = blocked_balance - $1 WHERE account_id = $2`, tr.Amount, tr.PayerID); err != nil {
		return Settlement{}, err
	}

	var payerAvailable int64
	if err := tx.QueryRow(ctx, `SELECT available_balance FROM wallets WHERE account_id = $1`, tr.PayerID).Scan(&payerAvailable); err != nil {
		return Settlement{}, err
	}

	var payeeAvailable int64
	if err := tx.QueryRow(ctx, `UPDATE wallets SET available_balance = available_balance + $1
        WHERE account_id = $2 RETURNING available_balance`, tr.Amount, tr.PayeeID).Scan(&payeeAvailable); err != nil {
		return Settlement{}, err
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `INSERT INTO extracts (id, account_id, transfer_id, value, type, current_value, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), tr.PayerID, tr.ID, tr.Amount, ExtractOutgoing, payerAvailable, extractOutgoingText+payeeName, now); err != nil {
		return Settlement{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO extracts (id, account_id, transfer_id, value, type, current_value, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), tr.PayeeID, tr.ID, tr.Amount, ExtractIncoming, payeeAvailable, extractIncomingText+payerName, now); err != nil {
		return Settlement{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE transfers SET status = $1 WHERE id = $2`, StatusFinalized, tr.ID); err != nil {
		return Settlement{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Settlement{}, err
	}

	tr.Status = StatusFinalized
	return Settlement{Transfer: tr, PayerAvailable: payerAvailable, PayeeAvailable: payeeAvailable}, nil
}

// Release returns the reservation to the payer and marks the transfer
// unauthorized. Idempotent against re-delivery via ErrAlreadyFinal.
func (l *PostgresLedger) Release(ctx context.Context, transferID uuid.UUID) (Transfer, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transfer{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tr, err := lockTransfer(ctx, tx, transferID)
	if err != nil {
		return Transfer{}, err
	}
	if tr.Terminal() {
		return tr, ErrAlreadyFinal
	}

	if _, err := lockWallet(ctx, tx, tr.PayerID); err != nil {
		return Transfer{}, err
	}

	cmd, err := tx.Exec(ctx, `UPDATE wallets
        SET blocked_balance = blocked_balance - $1, available_balance = available_balance + $1
        WHERE account_id = $2 AND blocked_balance >= $1`, tr.Amount, tr.PayerID)
	if err != nil {
		return Transfer{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Transfer{}, fmt.Errorf("blocked balance below transfer amount %d", tr.Amount)
	}

	if _, err := tx.Exec(ctx, `UPDATE transfers SET status = $1 WHERE id = $2`, StatusUnauthorized, tr.ID); err != nil {
		return Transfer{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transfer{}, err
	}

	tr.Status = StatusUnauthorized
	return tr, nil
}

// Get fetches a single transfer by id.
func (l *PostgresLedger) Get(ctx context.Context, transferID uuid.UUID) (Transfer, error) {
	row := l.db.QueryRow(ctx, `SELECT id, payer_id, payee_id, amount, scheduling_date, status, description, created_at
        FROM transfers WHERE id = $1`, transferID)
	return scanTransfer(row)
}

// ListByPayer returns the account's submitted transfers, newest first.
func (l *PostgresLedger) ListByPayer(ctx context.Context, payerID uuid.UUID) ([]Transfer, error) {
	rows, err := l.db.Query(ctx, `SELECT id, payer_id, payee_id, amount, scheduling_date, status, description, created_at
        FROM transfers WHERE payer_id = $1 ORDER BY created_at DESC`, payerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		tr, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, tr)
	}
	return transfers, rows.Err()
}

// ListDue returns scheduled transfers due on or before now.
func (l *PostgresLedger) ListDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := l.db.Query(ctx, `SELECT id FROM transfers WHERE status = $1 AND scheduling_date <= $2 ORDER BY created_at`,
		StatusScheduled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Extracts returns the account's statement entries, newest first.
func (l *PostgresLedger) Extracts(ctx context.Context, accountID uuid.UUID) ([]Extract, error) {
	rows, err := l.db.Query(ctx, `SELECT id, account_id, transfer_id, value, type, current_value, description, created_at
        FROM extracts WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var extracts []Extract
	for rows.Next() {
		var e Extract
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.AccountID, &e.TransferID, &e.Value, &e.Type, &e.CurrentValue, &e.Description, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = createdAt.UTC()
		extracts = append(extracts, e)
	}
	return extracts, rows.Err()
}

func lockWallet(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (Balance, error) {
	row := tx.QueryRow(ctx, `SELECT available_balance, blocked_balance FROM wallets WHERE account_id = $1 FOR UPDATE`, accountID)
	b := Balance{AccountID: accountID}
	if err := row.Scan(&b.Available, &b.Blocked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrWalletNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// lockWalletPair acquires both wallet row locks in a stable order so two
// settlements over the same pair cannot deadlock.
func lockWalletPair(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) error {
	first, second := a, b
	if strings.Compare(a.String(), b.String()) > 0 {
		first, second = b, a
	}
	if _, err := lockWallet(ctx, tx, first); err != nil {
		return err
	}
	_, err := lockWallet(ctx, tx, second)
	return err
}

func lockTransfer(ctx context.Context, tx pgx.Tx, transferID uuid.UUID) (Transfer, error) {
	row := tx.QueryRow(ctx, `SELECT id, payer_id, payee_id, amount, scheduling_date, status, description, created_at
        FROM transfers WHERE id = $1 FOR UPDATE`, transferID)
	return scanTransfer(row)
}

func scanTransfer(row pgx.Row) (Transfer, error) {
	var tr Transfer
	var schedulingDate, createdAt time.Time
	if err := row.Scan(&tr.ID, &tr.PayerID, &tr.PayeeID, &tr.Amount, &schedulingDate, &tr.Status, &tr.Description, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transfer{}, ErrTransferNotFound
		}
		return Transfer{}, err
	}
	tr.SchedulingDate = schedulingDate.UTC()
	tr.CreatedAt = createdAt.UTC()
	return tr, nil
}
