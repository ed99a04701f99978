package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"compliance-platform/pkg/utils"
)

func newTestService(t *testing.T, tenants ...string) *Service {
	t.Helper()
	svc := NewService(NewMemoryStore(), nil)
	for _, id := range tenants {
		if _, err := svc.Open(context.Background(), id, "usd"); err != nil {
			t.Fatalf("open %s: %v", id, err)
		}
	}
	return svc
}

func topUp(t *testing.T, svc *Service, tenantID string, amount int64) {
	t.Helper()
	if _, err := svc.Credit(context.Background(), CreditRequest{TenantID: tenantID, AmountMinor: amount, Type: TxTopUp}); err != nil {
		t.Fatalf("top-up: %v", err)
	}
}

func TestDebit_RecordsSnapshots(t *testing.T) {
	svc := newTestService(t, "t1")
	topUp(t, svc, "t1", 1000)

	tx, err := svc.Debit(context.Background(), DebitRequest{TenantID: "t1", AmountMinor: 200, ServiceCode: "KYC_BASIC", ReferenceID: "r1"})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if tx.BalanceBeforeMinor != 1000 || tx.BalanceAfterMinor != 800 {
		t.Fatalf("unexpected snapshots: %+v", tx)
	}
	if tx.Seq != 2 || tx.Type != TxDeduction || tx.Direction != DirectionDebit || tx.Currency != "USD" {
		t.Fatalf("unexpected tx: %+v", tx)
	}

	bal, err := svc.GetBalance(context.Background(), "t1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.BalanceMinor != 800 || bal.Balance != "8.00" {
		t.Fatalf("unexpected balance: %+v", bal)
	}
}

func TestDebit_InsufficientBalanceWritesNothing(t *testing.T) {
	svc := newTestService(t, "t1")
	topUp(t, svc, "t1", 100)

	_, err := svc.Debit(context.Background(), DebitRequest{TenantID: "t1", AmountMinor: 200, ReferenceID: "r1"})
	var ib *InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if ib.Required != 200 || ib.Available != 100 {
		t.Fatalf("unexpected error payload: %+v", ib)
	}
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected errors.Is ErrInsufficient")
	}

	txs, _ := svc.Transactions(context.Background(), "t1", ListOptions{})
	if len(txs) != 1 {
		t.Fatalf("expected only the top-up, got %d", len(txs))
	}
	// The reference is still free after a rejected debit.
	topUp(t, svc, "t1", 100)
	if _, err := svc.Debit(context.Background(), DebitRequest{TenantID: "t1", AmountMinor: 200, ReferenceID: "r1"}); err != nil {
		t.Fatalf("retry after top-up: %v", err)
	}
}

func TestDebit_ExactBalanceSucceeds(t *testing.T) {
	svc := newTestService(t, "t1")
	topUp(t, svc, "t1", 200)
	tx, err := svc.Debit(context.Background(), DebitRequest{TenantID: "t1", AmountMinor: 200, ReferenceID: "r1"})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if tx.BalanceAfterMinor != 0 {
		t.Fatalf("expected zero balance, got %d", tx.BalanceAfterMinor)
	}
}

func TestInvalidAmounts(t *testing.T) {
	svc := newTestService(t, "t1")
	ctx := context.Background()
	for _, amt := range []int64{0, -1} {
		if _, err := svc.Debit(ctx, DebitRequest{TenantID: "t1", AmountMinor: amt, ReferenceID: "r"}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("debit %d: expected ErrInvalidAmount, got %v", amt, err)
		}
		if _, err := svc.Credit(ctx, CreditRequest{TenantID: "t1", AmountMinor: amt, Type: TxTopUp}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("credit %d: expected ErrInvalidAmount, got %v", amt, err)
		}
	}
	if _, err := svc.Credit(ctx, CreditRequest{TenantID: "t1", AmountMinor: 1, Type: TxDeduction}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected deduction to be rejected as credit type, got %v", err)
	}
}

func TestDebit_DuplicateReference(t *testing.T) {
	svc := newTestService(t, "t1")
	topUp(t, svc, "t1", 1000)
	ctx := context.Background()

	first, err := svc.Debit(ctx, DebitRequest{TenantID: "t1", AmountMinor: 100, ReferenceID: "r1"})
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}
	_, err = svc.Debit(ctx, DebitRequest{TenantID: "t1", AmountMinor: 100, ReferenceID: "r1"})
	var dup *DuplicateReferenceError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateReferenceError, got %v", err)
	}
	if dup.Existing.ID != first.ID {
		t.Fatalf("expected existing tx %s, got %s", first.ID, dup.Existing.ID)
	}
	bal, _ := svc.GetBalance(ctx, "t1")
	if bal.BalanceMinor != 900 {
		t.Fatalf("expected single charge, balance %d", bal.BalanceMinor)
	}

	// Same reference is independent per type: a refund may reuse it once.
	if _, err := svc.Credit(ctx, CreditRequest{TenantID: "t1", AmountMinor: 100, Type: TxRefund, ReferenceID: "r1"}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if _, err := svc.Credit(ctx, CreditRequest{TenantID: "t1", AmountMinor: 100, Type: TxRefund, ReferenceID: "r1"}); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate refund, got %v", err)
	}
}

func TestDebit_ConcurrentLastUnitExactlyOneWins(t *testing.T) {
	svc := newTestService(t, "t1")
	topUp(t, svc, "t1", 200)

	const n = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		blocked  int
		unexpect []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Debit(context.Background(), DebitRequest{TenantID: "t1", AmountMinor: 200, ReferenceID: fmt.Sprintf("r%d", i)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrInsufficient):
				blocked++
			default:
				unexpect = append(unexpect, err)
			}
		}(i)
	}
	wg.Wait()

	if len(unexpect) > 0 {
		t.Fatalf("unexpected errors: %v", unexpect)
	}
	if success != 1 || blocked != n-1 {
		t.Fatalf("expected 1 success and %d blocked, got %d/%d", n-1, success, blocked)
	}
	bal, _ := svc.GetBalance(context.Background(), "t1")
	if bal.BalanceMinor != 0 {
		t.Fatalf("expected zero balance, got %d", bal.BalanceMinor)
	}
}

func TestDebit_ConcurrentSameReferenceChargesOnce(t *testing.T) {
	svc := newTestService(t, "t1")
	topUp(t, svc, "t1", 10000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Debit(context.Background(), DebitRequest{TenantID: "t1", AmountMinor: 100, ReferenceID: "same"})
		}()
	}
	wg.Wait()

	bal, _ := svc.GetBalance(context.Background(), "t1")
	if bal.BalanceMinor != 9900 {
		t.Fatalf("expected exactly one charge, balance %d", bal.BalanceMinor)
	}
}

func TestConcurrentMixedOperationsKeepChain(t *testing.T) {
	svc := newTestService(t, "t1", "t2")
	topUp(t, svc, "t1", 5000)
	topUp(t, svc, "t2", 5000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tenant := []string{"t1", "t2"}[i%2]
			_, _ = svc.Debit(ctx, DebitRequest{TenantID: tenant, AmountMinor: int64(100 + i), ReferenceID: fmt.Sprintf("d%d", i)})
		}(i)
		go func(i int) {
			defer wg.Done()
			tenant := []string{"t1", "t2"}[i%2]
			_, _ = svc.Credit(ctx, CreditRequest{TenantID: tenant, AmountMinor: 50, Type: TxTopUp})
		}(i)
	}
	wg.Wait()

	for _, tenant := range []string{"t1", "t2"} {
		rep, err := svc.VerifyChain(ctx, tenant)
		if err != nil {
			t.Fatalf("%s: %v", tenant, err)
		}
		if rep.BalanceMinor < 0 {
			t.Fatalf("%s: negative balance %d", tenant, rep.BalanceMinor)
		}
	}
}

func TestAdjust(t *testing.T) {
	svc := newTestService(t, "t1")
	ctx := context.Background()

	if _, err := svc.Adjust(ctx, AdjustRequest{TenantID: "t1", Direction: DirectionCredit, AmountMinor: 300, Reason: "goodwill", ActorID: "op"}); err != nil {
		t.Fatalf("credit adjust: %v", err)
	}
	if _, err := svc.Adjust(ctx, AdjustRequest{TenantID: "t1", Direction: DirectionDebit, AmountMinor: 500, Reason: "correction", ActorID: "op"}); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected insufficient on debit adjust, got %v", err)
	}
	tx, err := svc.Adjust(ctx, AdjustRequest{TenantID: "t1", Direction: DirectionDebit, AmountMinor: 100, Reason: "correction", ActorID: "op"})
	if err != nil {
		t.Fatalf("debit adjust: %v", err)
	}
	if tx.Metadata["reason"] != "correction" || tx.BalanceAfterMinor != 200 {
		t.Fatalf("unexpected tx: %+v", tx)
	}
	if _, err := svc.Adjust(ctx, AdjustRequest{TenantID: "t1", Direction: DirectionDebit, AmountMinor: 1, ActorID: "op"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected reason required, got %v", err)
	}
}

func TestWalletLifecycleErrors(t *testing.T) {
	svc := newTestService(t, "t1")
	ctx := context.Background()
	if _, err := svc.Open(ctx, "t1", "USD"); !errors.Is(err, ErrWalletExists) {
		t.Fatalf("expected ErrWalletExists, got %v", err)
	}
	if _, err := svc.GetBalance(ctx, "missing"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
	if _, err := svc.Debit(ctx, DebitRequest{TenantID: "t1", AmountMinor: 1, Currency: "EUR", ReferenceID: "r"}); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := svc.FindByReference(ctx, "t1", TxDeduction, "nope"); !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
}

type brokenStore struct{ Store }

func (brokenStore) GetWallet(ctx context.Context, tenantID string) (Wallet, error) {
	return Wallet{}, errors.New("connection refused")
}

func (brokenStore) Apply(ctx context.Context, tenantID string, p Posting) (Transaction, Wallet, error) {
	return Transaction{}, Wallet{}, errors.New("connection refused")
}

func TestStoreFailuresAreUnavailable(t *testing.T) {
	svc := NewService(brokenStore{}, nil)
	if _, err := svc.GetBalance(context.Background(), "t1"); !errors.Is(err, utils.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := svc.Debit(context.Background(), DebitRequest{TenantID: "t1", AmountMinor: 1, ReferenceID: "r"}); !errors.Is(err, utils.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestTransactionsFilterAndPage(t *testing.T) {
	svc := newTestService(t, "t1")
	ctx := context.Background()
	topUp(t, svc, "t1", 1000)
	for i := 0; i < 4; i++ {
		if _, err := svc.Debit(ctx, DebitRequest{TenantID: "t1", AmountMinor: 10, ReferenceID: fmt.Sprintf("r%d", i)}); err != nil {
			t.Fatalf("debit: %v", err)
		}
	}
	got, err := svc.Transactions(ctx, "t1", ListOptions{Type: TxDeduction, Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ReferenceID != "r1" || got[1].ReferenceID != "r2" {
		t.Fatalf("unexpected page: %+v", got)
	}
}
