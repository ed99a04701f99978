package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"compliance-platform/internal/metrics"
	"compliance-platform/pkg/utils"

	"github.com/google/uuid"
)

// Service provides wallet operations.
//
// Money invariants:
// - No balance updates without a ledger entry
// - Ledger is append-only (immutable)
// - A failed operation leaves the wallet untouched
//
// Errors: business outcomes are returned as the package sentinels / typed errors.
// Anything else comes from the store and is wrapped with utils.ErrStorageUnavailable.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(store Store, m *metrics.Metrics) *Service {
	return &Service{store: store, metrics: m, clock: time.Now}
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

type DebitRequest struct {
	TenantID    string            `json:"tenant_id"`
	AmountMinor int64             `json:"amount_minor"`
	Currency    string            `json:"currency,omitempty"`
	ServiceCode string            `json:"service_code"`
	ReferenceID string            `json:"reference_id"`
	ActorID     string            `json:"actor_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type CreditRequest struct {
	TenantID    string            `json:"tenant_id"`
	AmountMinor int64             `json:"amount_minor"`
	Type        TxType            `json:"type"`
	Currency    string            `json:"currency,omitempty"`
	ServiceCode string            `json:"service_code,omitempty"`
	ReferenceID string            `json:"reference_id,omitempty"`
	ActorID     string            `json:"actor_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type AdjustRequest struct {
	TenantID    string    `json:"tenant_id"`
	Direction   Direction `json:"direction"`
	AmountMinor int64     `json:"amount_minor"`
	Reason      string    `json:"reason"`
	ReferenceID string    `json:"reference_id,omitempty"`
	ActorID     string    `json:"actor_id"`
}

func (s *Service) classify(err error) error {
	if err == nil || isDomain(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return utils.Unavailable(err)
}

// Open creates the tenant's wallet with a zero balance.
func (s *Service) Open(ctx context.Context, tenantID, currency string) (Wallet, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if tenantID == "" || len(currency) != 3 {
		return Wallet{}, ErrInvalidArgument
	}
	now := s.clock().UTC()
	w, err := s.store.OpenWallet(ctx, Wallet{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return w, s.classify(err)
}

func (s *Service) Get(ctx context.Context, tenantID string) (Wallet, error) {
	if tenantID == "" {
		return Wallet{}, ErrInvalidArgument
	}
	w, err := s.store.GetWallet(ctx, tenantID)
	return w, s.classify(err)
}

func (s *Service) GetBalance(ctx context.Context, tenantID string) (Balance, error) {
	w, err := s.Get(ctx, tenantID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		TenantID:     w.TenantID,
		WalletID:     w.ID,
		Currency:     w.Currency,
		BalanceMinor: w.BalanceMinor,
		Balance:      FormatMinor(w.BalanceMinor),
		UpdatedAt:    w.UpdatedAt,
	}, nil
}

// Debit posts a DEDUCTION for a service usage.
func (s *Service) Debit(ctx context.Context, req DebitRequest) (Transaction, error) {
	if req.AmountMinor <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if req.TenantID == "" || req.ReferenceID == "" {
		return Transaction{}, ErrInvalidArgument
	}
	return s.post(ctx, req.TenantID, Posting{
		Type:        TxDeduction,
		Direction:   DirectionDebit,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		ServiceCode: req.ServiceCode,
		ReferenceID: req.ReferenceID,
		ActorID:     req.ActorID,
		Metadata:    req.Metadata,
	})
}

// Credit posts a TOPUP or REFUND. Use Adjust for ADJUSTMENT.
func (s *Service) Credit(ctx context.Context, req CreditRequest) (Transaction, error) {
	if req.AmountMinor <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if req.TenantID == "" {
		return Transaction{}, ErrInvalidArgument
	}
	if req.Type != TxTopUp && req.Type != TxRefund {
		return Transaction{}, fmt.Errorf("%w: credit type %q", ErrInvalidArgument, req.Type)
	}
	if req.Type == TxRefund && req.ReferenceID == "" {
		return Transaction{}, fmt.Errorf("%w: refund requires a reference", ErrInvalidArgument)
	}
	return s.post(ctx, req.TenantID, Posting{
		Type:        req.Type,
		Direction:   DirectionCredit,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		ServiceCode: req.ServiceCode,
		ReferenceID: req.ReferenceID,
		ActorID:     req.ActorID,
		Metadata:    req.Metadata,
	})
}

// Adjust posts a manual ADJUSTMENT in either direction. A debit adjustment is
// subject to the same balance check as a deduction.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (Transaction, error) {
	if req.AmountMinor <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if req.TenantID == "" || req.ActorID == "" || strings.TrimSpace(req.Reason) == "" || !req.Direction.Valid() {
		return Transaction{}, ErrInvalidArgument
	}
	return s.post(ctx, req.TenantID, Posting{
		Type:        TxAdjustment,
		Direction:   req.Direction,
		AmountMinor: req.AmountMinor,
		ReferenceID: req.ReferenceID,
		ActorID:     req.ActorID,
		Metadata:    map[string]string{"reason": req.Reason},
	})
}

func (s *Service) post(ctx context.Context, tenantID string, p Posting) (Transaction, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = s.clock().UTC()
	tx, _, err := s.store.Apply(ctx, tenantID, p)
	if err != nil {
		return Transaction{}, s.classify(err)
	}
	s.metrics.ObserveLedger(string(tx.Type), tx.Currency, tx.AmountMinor)
	return tx, nil
}

// FindByReference returns the transaction of type t recorded for referenceID.
func (s *Service) FindByReference(ctx context.Context, tenantID string, t TxType, referenceID string) (Transaction, error) {
	if tenantID == "" || referenceID == "" || !t.Valid() {
		return Transaction{}, ErrInvalidArgument
	}
	tx, ok, err := s.store.FindByReference(ctx, tenantID, t, referenceID)
	if err != nil {
		return Transaction{}, s.classify(err)
	}
	if !ok {
		return Transaction{}, ErrReferenceNotFound
	}
	return tx, nil
}

// Transactions lists a page of the tenant's ledger in seq order.
func (s *Service) Transactions(ctx context.Context, tenantID string, opts ListOptions) ([]Transaction, error) {
	if opts.Limit < 0 || opts.Offset < 0 || (opts.Type != "" && !opts.Type.Valid()) {
		return nil, ErrInvalidArgument
	}
	if opts.Limit == 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if _, err := s.Get(ctx, tenantID); err != nil {
		return nil, err
	}
	out, err := s.store.ListTransactions(ctx, tenantID, opts)
	return out, s.classify(err)
}

// ChainReport summarizes a successful VerifyChain.
type ChainReport struct {
	TenantID     string `json:"tenant_id"`
	WalletID     string `json:"wallet_id"`
	Transactions int    `json:"transactions"`
	BalanceMinor int64  `json:"balance_minor"`
}

// VerifyChain replays the full ledger and checks that seq is gapless, every
// entry starts where the previous one ended, every after = before +/- amount, and
// the wallet balance equals the last after. It returns ErrChainBroken on the
// first violation.
func (s *Service) VerifyChain(ctx context.Context, tenantID string) (ChainReport, error) {
	w, err := s.Get(ctx, tenantID)
	if err != nil {
		return ChainReport{}, err
	}
	txs, err := s.store.ListTransactions(ctx, tenantID, ListOptions{})
	if err != nil {
		return ChainReport{}, s.classify(err)
	}

	var balance int64
	for i, t := range txs {
		if t.Seq != int64(i+1) {
			return ChainReport{}, fmt.Errorf("%w: expected seq %d, got %d", ErrChainBroken, i+1, t.Seq)
		}
		if t.AmountMinor <= 0 {
			return ChainReport{}, fmt.Errorf("%w: seq %d has non-positive amount", ErrChainBroken, t.Seq)
		}
		if t.BalanceBeforeMinor != balance {
			return ChainReport{}, fmt.Errorf("%w: seq %d starts at %d, previous ended at %d", ErrChainBroken, t.Seq, t.BalanceBeforeMinor, balance)
		}
		want := t.BalanceBeforeMinor + t.AmountMinor
		if t.Direction == DirectionDebit {
			want = t.BalanceBeforeMinor - t.AmountMinor
		}
		if t.BalanceAfterMinor != want || t.BalanceAfterMinor < 0 {
			return ChainReport{}, fmt.Errorf("%w: seq %d ends at %d, want %d", ErrChainBroken, t.Seq, t.BalanceAfterMinor, want)
		}
		balance = t.BalanceAfterMinor
	}
	if balance != w.BalanceMinor {
		return ChainReport{}, fmt.Errorf("%w: wallet balance %d, ledger %d", ErrChainBroken, w.BalanceMinor, balance)
	}
	return ChainReport{TenantID: tenantID, WalletID: w.ID, Transactions: len(txs), BalanceMinor: balance}, nil
}
