package wallet

import "time"

// Wallet is the single money account of a tenant (1:1).
// Invariant: BalanceMinor always equals the BalanceAfterMinor of the wallet's latest
// transaction (or zero when it has none). Nothing changes a balance without appending
// a Transaction in the same atomic step.
type Wallet struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Currency string `json:"currency" db:"currency"`

	BalanceMinor int64 `json:"balance_minor" db:"balance_minor"`
	// LastSeq is the seq of the latest transaction.
	LastSeq int64 `json:"last_seq" db:"last_seq"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type TxType string

const (
	TxTopUp      TxType = "TOPUP"
	TxDeduction  TxType = "DEDUCTION"
	TxRefund     TxType = "REFUND"
	TxAdjustment TxType = "ADJUSTMENT"
)

func (t TxType) Valid() bool {
	switch t {
	case TxTopUp, TxDeduction, TxRefund, TxAdjustment:
		return true
	}
	return false
}

type Direction string

const (
	DirectionCredit Direction = "CREDIT"
	DirectionDebit  Direction = "DEBIT"
)

func (d Direction) Valid() bool { return d == DirectionCredit || d == DirectionDebit }

// Transaction is an immutable ledger entry.
//
// Amount is always positive; Direction says which way it moved the balance.
// BalanceAfterMinor = BalanceBeforeMinor +/- AmountMinor, and each entry's
// BalanceBeforeMinor equals the previous entry's BalanceAfterMinor.
type Transaction struct {
	ID       string `json:"id" db:"id"`
	WalletID string `json:"wallet_id" db:"wallet_id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Seq      int64  `json:"seq" db:"seq"`

	Type      TxType    `json:"type" db:"type"`
	Direction Direction `json:"direction" db:"direction"`

	AmountMinor        int64  `json:"amount_minor" db:"amount_minor"`
	Currency           string `json:"currency" db:"currency"`
	BalanceBeforeMinor int64  `json:"balance_before_minor" db:"balance_before_minor"`
	BalanceAfterMinor  int64  `json:"balance_after_minor" db:"balance_after_minor"`

	ServiceCode string `json:"service_code,omitempty" db:"service_code"`
	// ReferenceID is the caller-supplied idempotency key, unique per (wallet, type).
	ReferenceID string `json:"reference_id,omitempty" db:"reference_id"`
	ActorID     string `json:"actor_id,omitempty" db:"actor_id"`

	Metadata map[string]string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Posting is a requested balance movement. Stores turn it into a Transaction
// under the wallet lock, filling seq and the balance snapshots.
type Posting struct {
	ID          string
	Type        TxType
	Direction   Direction
	AmountMinor int64
	// Currency, when set, must equal the wallet currency.
	Currency    string
	ServiceCode string
	ReferenceID string
	ActorID     string
	Metadata    map[string]string
	CreatedAt   time.Time
}

// apply computes the transaction p produces against w. It does not mutate w.
func (p Posting) apply(w Wallet) (Transaction, error) {
	if p.Currency != "" && p.Currency != w.Currency {
		return Transaction{}, ErrCurrencyMismatch
	}
	after := w.BalanceMinor + p.AmountMinor
	if p.Direction == DirectionDebit {
		if w.BalanceMinor < p.AmountMinor {
			return Transaction{}, &InsufficientBalanceError{Required: p.AmountMinor, Available: w.BalanceMinor}
		}
		after = w.BalanceMinor - p.AmountMinor
	}
	return Transaction{
		ID:                 p.ID,
		WalletID:           w.ID,
		TenantID:           w.TenantID,
		Seq:                w.LastSeq + 1,
		Type:               p.Type,
		Direction:          p.Direction,
		AmountMinor:        p.AmountMinor,
		Currency:           w.Currency,
		BalanceBeforeMinor: w.BalanceMinor,
		BalanceAfterMinor:  after,
		ServiceCode:        p.ServiceCode,
		ReferenceID:        p.ReferenceID,
		ActorID:            p.ActorID,
		Metadata:           copyMeta(p.Metadata),
		CreatedAt:          p.CreatedAt,
	}, nil
}

// Balance is the read view returned by GetBalance.
type Balance struct {
	TenantID     string    `json:"tenant_id"`
	WalletID     string    `json:"wallet_id"`
	Currency     string    `json:"currency"`
	BalanceMinor int64     `json:"balance_minor"`
	Balance      string    `json:"balance"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListOptions filters Transactions. Zero values mean unbounded; Limit 0 means all.
type ListOptions struct {
	From   time.Time
	To     time.Time
	Type   TxType
	Limit  int
	Offset int
}

func (o ListOptions) matches(t Transaction) bool {
	if !o.From.IsZero() && t.CreatedAt.Before(o.From) {
		return false
	}
	if !o.To.IsZero() && !t.CreatedAt.Before(o.To) {
		return false
	}
	if o.Type != "" && t.Type != o.Type {
		return false
	}
	return true
}

func copyMeta(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
