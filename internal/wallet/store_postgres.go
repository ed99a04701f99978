package wallet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"compliance-platform/pkg/utils"
)

// PostgresStore assumes the tables created by internal/db migrations:
// - wallets (one row per tenant, balance projection + last_seq)
// - wallet_transactions (append-only)
//
// Duplicate references are backed by
// UNIQUE (wallet_id, type, reference_id) WHERE reference_id <> ''.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const walletColumns = `id, tenant_id, currency, balance_minor, last_seq, created_at, updated_at`

const txColumns = `id, wallet_id, tenant_id, seq, type, direction, amount_minor, currency,
       balance_before_minor, balance_after_minor, service_code, reference_id, actor_id, metadata, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	if err := row.Scan(&w.ID, &w.TenantID, &w.Currency, &w.BalanceMinor, &w.LastSeq, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

func scanTx(row rowScanner) (Transaction, error) {
	var (
		t    Transaction
		meta []byte
	)
	if err := row.Scan(
		&t.ID,
		&t.WalletID,
		&t.TenantID,
		&t.Seq,
		&t.Type,
		&t.Direction,
		&t.AmountMinor,
		&t.Currency,
		&t.BalanceBeforeMinor,
		&t.BalanceAfterMinor,
		&t.ServiceCode,
		&t.ReferenceID,
		&t.ActorID,
		&meta,
		&t.CreatedAt,
	); err != nil {
		return Transaction{}, err
	}
	if len(meta) > 0 && string(meta) != "{}" {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return Transaction{}, fmt.Errorf("wallet: decode metadata for %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func (s *PostgresStore) OpenWallet(ctx context.Context, w Wallet) (Wallet, error) {
	const q = `
INSERT INTO wallets (id, tenant_id, currency, balance_minor, last_seq, created_at, updated_at)
VALUES ($1,$2,$3,0,0,$4,$5)
`
	if _, err := s.db.ExecContext(ctx, q, w.ID, w.TenantID, w.Currency, w.CreatedAt, w.UpdatedAt); err != nil {
		if utils.IsUniqueViolation(err) {
			return Wallet{}, ErrWalletExists
		}
		return Wallet{}, err
	}
	w.BalanceMinor, w.LastSeq = 0, 0
	return w, nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, tenantID string) (Wallet, error) {
	q := `SELECT ` + walletColumns + ` FROM wallets WHERE tenant_id = $1`
	return scanWallet(s.db.QueryRowContext(ctx, q, tenantID))
}

func lockWallet(ctx context.Context, tx *sql.Tx, tenantID string) (Wallet, error) {
	// Lock the wallet row to serialize concurrent money operations per wallet.
	q := `SELECT ` + walletColumns + ` FROM wallets WHERE tenant_id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRowContext(ctx, q, tenantID))
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findByReference(ctx context.Context, q queryRower, walletID string, t TxType, ref string) (Transaction, bool, error) {
	query := `SELECT ` + txColumns + `
FROM wallet_transactions
WHERE wallet_id = $1 AND type = $2 AND reference_id = $3
LIMIT 1`
	tx, err := scanTx(q.QueryRowContext(ctx, query, walletID, string(t), ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, err
	}
	return tx, true, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t Transaction) error {
	meta := []byte("{}")
	if len(t.Metadata) > 0 {
		b, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("wallet: encode metadata: %w", err)
		}
		meta = b
	}
	const q = `
INSERT INTO wallet_transactions (
  id, wallet_id, tenant_id, seq, type, direction, amount_minor, currency,
  balance_before_minor, balance_after_minor, service_code, reference_id, actor_id, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
`
	_, err := tx.ExecContext(ctx, q,
		t.ID,
		t.WalletID,
		t.TenantID,
		t.Seq,
		string(t.Type),
		string(t.Direction),
		t.AmountMinor,
		t.Currency,
		t.BalanceBeforeMinor,
		t.BalanceAfterMinor,
		t.ServiceCode,
		t.ReferenceID,
		t.ActorID,
		meta,
		t.CreatedAt,
	)
	return err
}

func updateWallet(ctx context.Context, tx *sql.Tx, t Transaction) error {
	const q = `
UPDATE wallets
SET balance_minor = $2, last_seq = $3, updated_at = $4
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q, t.WalletID, t.BalanceAfterMinor, t.Seq, t.CreatedAt)
	return err
}

func (s *PostgresStore) Apply(ctx context.Context, tenantID string, p Posting) (Transaction, Wallet, error) {
	var (
		out Transaction
		w   Wallet
	)
	err := utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		locked, err := lockWallet(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if p.ReferenceID != "" {
			existing, ok, err := findByReference(ctx, tx, locked.ID, p.Type, p.ReferenceID)
			if err != nil {
				return err
			}
			if ok {
				return &DuplicateReferenceError{Existing: existing}
			}
		}

		t, err := p.apply(locked)
		if err != nil {
			return err
		}
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		if err := updateWallet(ctx, tx, t); err != nil {
			return err
		}

		locked.BalanceMinor = t.BalanceAfterMinor
		locked.LastSeq = t.Seq
		locked.UpdatedAt = t.CreatedAt
		out, w = t, locked
		return nil
	})
	if err != nil && utils.IsUniqueViolation(err) && p.ReferenceID != "" {
		// The unique index backstops the locked lookup.
		if existing, ok, ferr := s.FindByReference(ctx, tenantID, p.Type, p.ReferenceID); ferr == nil && ok {
			return Transaction{}, Wallet{}, &DuplicateReferenceError{Existing: existing}
		}
		return Transaction{}, Wallet{}, ErrDuplicateReference
	}
	if err != nil {
		return Transaction{}, Wallet{}, err
	}
	return out, w, nil
}

func (s *PostgresStore) FindByReference(ctx context.Context, tenantID string, t TxType, referenceID string) (Transaction, bool, error) {
	w, err := s.GetWallet(ctx, tenantID)
	if err != nil {
		return Transaction{}, false, err
	}
	return findByReference(ctx, s.db, w.ID, t, referenceID)
}

func (s *PostgresStore) ListTransactions(ctx context.Context, tenantID string, opts ListOptions) ([]Transaction, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !opts.From.IsZero() {
		add("created_at >= $%d", opts.From)
	}
	if !opts.To.IsZero() {
		add("created_at < $%d", opts.To)
	}
	if opts.Type != "" {
		add("type = $%d", string(opts.Type))
	}

	q := `SELECT ` + txColumns + `
FROM wallet_transactions
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY seq ASC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
