package wallet

import "context"

// Store persists wallets and their transactions.
//
// Apply is the only mutation of money state. Implementations must serialize
// Apply calls per wallet and make the duplicate check, the balance check, the
// append and the balance update a single atomic step. Operations on different
// tenants must not block each other.
type Store interface {
	OpenWallet(ctx context.Context, w Wallet) (Wallet, error)
	GetWallet(ctx context.Context, tenantID string) (Wallet, error)

	// Apply returns *DuplicateReferenceError when p.ReferenceID is already used for
	// p.Type on this wallet, and *InsufficientBalanceError for an uncovered debit.
	Apply(ctx context.Context, tenantID string, p Posting) (Transaction, Wallet, error)

	FindByReference(ctx context.Context, tenantID string, t TxType, referenceID string) (Transaction, bool, error)
	// ListTransactions returns transactions in ascending seq order.
	ListTransactions(ctx context.Context, tenantID string, opts ListOptions) ([]Transaction, error)
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*PostgresStore)(nil)
