package wallet

import (
	"context"
	"sync"
)

type refKey struct {
	typ TxType
	ref string
}

type memWallet struct {
	mu   sync.Mutex
	w    Wallet
	txs  []Transaction
	refs map[refKey]int
}

// MemoryStore keeps wallets in process. Each wallet has its own mutex; the
// store-wide lock only guards the tenant registry and is never held during Apply.
type MemoryStore struct {
	mu      sync.RWMutex
	wallets map[string]*memWallet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{wallets: make(map[string]*memWallet)}
}

func (s *MemoryStore) lookup(tenantID string) (*memWallet, error) {
	s.mu.RLock()
	mw, ok := s.wallets[tenantID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrWalletNotFound
	}
	return mw, nil
}

func (s *MemoryStore) OpenWallet(ctx context.Context, w Wallet) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[w.TenantID]; ok {
		return Wallet{}, ErrWalletExists
	}
	s.wallets[w.TenantID] = &memWallet{w: w, refs: make(map[refKey]int)}
	return w, nil
}

func (s *MemoryStore) GetWallet(ctx context.Context, tenantID string) (Wallet, error) {
	mw, err := s.lookup(tenantID)
	if err != nil {
		return Wallet{}, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.w, nil
}

func (s *MemoryStore) Apply(ctx context.Context, tenantID string, p Posting) (Transaction, Wallet, error) {
	mw, err := s.lookup(tenantID)
	if err != nil {
		return Transaction{}, Wallet{}, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Transaction{}, Wallet{}, err
	}
	if p.ReferenceID != "" {
		if i, ok := mw.refs[refKey{p.Type, p.ReferenceID}]; ok {
			return Transaction{}, Wallet{}, &DuplicateReferenceError{Existing: cloneTx(mw.txs[i])}
		}
	}
	tx, err := p.apply(mw.w)
	if err != nil {
		return Transaction{}, Wallet{}, err
	}

	mw.txs = append(mw.txs, tx)
	if p.ReferenceID != "" {
		mw.refs[refKey{p.Type, p.ReferenceID}] = len(mw.txs) - 1
	}
	mw.w.BalanceMinor = tx.BalanceAfterMinor
	mw.w.LastSeq = tx.Seq
	mw.w.UpdatedAt = tx.CreatedAt
	return cloneTx(tx), mw.w, nil
}

func (s *MemoryStore) FindByReference(ctx context.Context, tenantID string, t TxType, referenceID string) (Transaction, bool, error) {
	mw, err := s.lookup(tenantID)
	if err != nil {
		return Transaction{}, false, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()
	i, ok := mw.refs[refKey{t, referenceID}]
	if !ok {
		return Transaction{}, false, nil
	}
	return cloneTx(mw.txs[i]), true, nil
}

func (s *MemoryStore) ListTransactions(ctx context.Context, tenantID string, opts ListOptions) ([]Transaction, error) {
	mw, err := s.lookup(tenantID)
	if err != nil {
		return nil, err
	}
	mw.mu.Lock()
	defer mw.mu.Unlock()

	out := make([]Transaction, 0)
	skipped := 0
	for _, tx := range mw.txs {
		if !opts.matches(tx) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, cloneTx(tx))
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func cloneTx(t Transaction) Transaction {
	t.Metadata = copyMeta(t.Metadata)
	return t
}
