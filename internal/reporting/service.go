package reporting

import (
	"context"
	"errors"
	"sort"

	"compliance-platform/internal/wallet"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Ledger is the immutable source every report is derived from.
//
// IMPORTANT:
// - Calls are scoped to one tenant; implementations must not leak other wallets.
type Ledger interface {
	Get(ctx context.Context, tenantID string) (wallet.Wallet, error)
	Transactions(ctx context.Context, tenantID string, opts wallet.ListOptions) ([]wallet.Transaction, error)
}

type Service struct {
	ledger Ledger
}

func NewService(ledger Ledger) *Service { return &Service{ledger: ledger} }

// each walks every transaction in r page by page.
func (s *Service) each(ctx context.Context, tenantID string, r TimeRange, fn func(wallet.Transaction)) error {
	opts := wallet.ListOptions{From: r.From, To: r.To, Limit: wallet.MaxListLimit}
	for {
		page, err := s.ledger.Transactions(ctx, tenantID, opts)
		if err != nil {
			return err
		}
		for _, tx := range page {
			fn(tx)
		}
		if len(page) < opts.Limit {
			return nil
		}
		opts.Offset += len(page)
	}
}

func (s *Service) UsageSummary(ctx context.Context, req UsageSummaryRequest) (UsageSummary, error) {
	if req.TenantID == "" || !req.Range.valid() {
		return UsageSummary{}, ErrInvalidRequest
	}
	if s.ledger == nil {
		return UsageSummary{}, errors.New("reporting: ledger not configured")
	}
	w, err := s.ledger.Get(ctx, req.TenantID)
	if err != nil {
		return UsageSummary{}, err
	}

	byCode := map[string]*ServiceUsage{}
	usage := func(code string) *ServiceUsage {
		u, ok := byCode[code]
		if !ok {
			u = &ServiceUsage{ServiceCode: code}
			byCode[code] = u
		}
		return u
	}
	err = s.each(ctx, req.TenantID, req.Range, func(tx wallet.Transaction) {
		if tx.ServiceCode == "" {
			return
		}
		switch tx.Type {
		case wallet.TxDeduction:
			u := usage(tx.ServiceCode)
			u.Admitted++
			u.DebitedMinor += tx.AmountMinor
		case wallet.TxRefund:
			u := usage(tx.ServiceCode)
			u.Refunded++
			u.RefundedMinor += tx.AmountMinor
		}
	})
	if err != nil {
		return UsageSummary{}, err
	}

	out := UsageSummary{TenantID: req.TenantID, Currency: w.Currency, Range: req.Range, Services: make([]ServiceUsage, 0, len(byCode))}
	for _, u := range byCode {
		u.NetMinor = u.DebitedMinor - u.RefundedMinor
		u.Net = wallet.FormatMinor(u.NetMinor)
		out.TotalNetMinor += u.NetMinor
		out.Services = append(out.Services, *u)
	}
	sort.Slice(out.Services, func(i, j int) bool { return out.Services[i].ServiceCode < out.Services[j].ServiceCode })
	out.TotalNet = wallet.FormatMinor(out.TotalNetMinor)
	return out, nil
}

func (s *Service) SpendSummary(ctx context.Context, req SpendSummaryRequest) (SpendSummary, error) {
	if req.TenantID == "" || !req.Range.valid() {
		return SpendSummary{}, ErrInvalidRequest
	}
	if s.ledger == nil {
		return SpendSummary{}, errors.New("reporting: ledger not configured")
	}
	w, err := s.ledger.Get(ctx, req.TenantID)
	if err != nil {
		return SpendSummary{}, err
	}

	out := SpendSummary{TenantID: req.TenantID, Currency: w.Currency}
	err = s.each(ctx, req.TenantID, req.Range, func(tx wallet.Transaction) {
		if tx.Direction == wallet.DirectionCredit {
			out.TotalCreditMinor += tx.AmountMinor
		} else {
			out.TotalDebitMinor += tx.AmountMinor
		}
		switch tx.Type {
		case wallet.TxDeduction:
			out.UsageDebitMinor += tx.AmountMinor
		case wallet.TxRefund:
			out.RefundMinor += tx.AmountMinor
		case wallet.TxTopUp:
			out.TopUpMinor += tx.AmountMinor
		case wallet.TxAdjustment:
			if tx.Direction == wallet.DirectionCredit {
				out.AdjustmentMinor += tx.AmountMinor
			} else {
				out.AdjustmentMinor -= tx.AmountMinor
			}
		}
	})
	if err != nil {
		return SpendSummary{}, err
	}
	out.NetDeltaMinor = out.TotalCreditMinor - out.TotalDebitMinor
	return out, nil
}
