package admission

import (
	"context"
	"errors"
	"strings"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/tenant"
	"compliance-platform/internal/wallet"
	"compliance-platform/pkg/logger"
	"compliance-platform/pkg/utils"
)

// LedgerResult is the outcome of an audited wallet mutation outside admission.
type LedgerResult struct {
	Transaction wallet.Transaction `json:"transaction"`
	AuditLogID  string             `json:"audit_log_id"`
}

// Refund reverses the DEDUCTION recorded for referenceID by crediting the same amount
// under the same reference. A second refund of the same reference is a duplicate.
func (c *Controller) Refund(ctx context.Context, tc tenant.Context, referenceID, reason string) (LedgerResult, error) {
	billed := tc.BilledTenantID()
	if billed == "" || referenceID == "" {
		return LedgerResult{}, ErrInvalidRequest
	}
	reason = strings.TrimSpace(reason)

	debit, err := c.wallets.FindByReference(ctx, billed, wallet.TxDeduction, referenceID)
	if errors.Is(err, wallet.ErrReferenceNotFound) {
		e := mustEntry(billed, audit.EventBillingRefund, audit.ResultFailed, "no deduction for reference").
			WithMeta("reference_id", referenceID)
		c.recordBestEffort(ctx, e)
		return LedgerResult{}, err
	}
	if err != nil {
		return LedgerResult{}, c.ledgerFailure(ctx, billed, audit.EventBillingRefund, referenceID, err)
	}

	meta := map[string]string{"deduction_id": debit.ID}
	if reason != "" {
		meta["reason"] = reason
	}
	tx, err := c.wallets.Credit(ctx, wallet.CreditRequest{
		TenantID:    billed,
		AmountMinor: debit.AmountMinor,
		Type:        wallet.TxRefund,
		Currency:    debit.Currency,
		ServiceCode: debit.ServiceCode,
		ReferenceID: referenceID,
		ActorID:     audit.ActorFromContext(ctx).ID,
		Metadata:    meta,
	})
	var dup *wallet.DuplicateReferenceError
	if errors.As(err, &dup) {
		e := mustEntry(billed, audit.EventBillingRefund, audit.ResultBlocked, "reference already refunded").
			WithTarget(audit.TargetWalletTransaction, dup.Existing.ID).
			WithMeta("reference_id", referenceID)
		c.recordBestEffort(ctx, e)
		return LedgerResult{}, err
	}
	if err != nil {
		return LedgerResult{}, c.ledgerFailure(ctx, billed, audit.EventBillingRefund, referenceID, err)
	}

	e := mustEntry(billed, audit.EventBillingRefund, audit.ResultAllowed, "usage refunded").
		WithTarget(audit.TargetWalletTransaction, tx.ID).
		WithMeta("reference_id", referenceID).
		WithMeta("service_code", tx.ServiceCode).
		WithMeta("amount", wallet.FormatMinor(tx.AmountMinor)).
		WithMeta("currency", tx.Currency).
		WithMeta("deduction_id", debit.ID)
	if reason != "" {
		e = e.WithMeta("reason", reason)
	}
	return c.recordLedger(ctx, tx, e)
}

type TopUpRequest struct {
	TenantID    string `json:"tenant_id"`
	AmountMinor int64  `json:"amount_minor"`
	ReferenceID string `json:"reference_id,omitempty"`
	Note        string `json:"note,omitempty"`
}

// TopUp credits a wallet on behalf of an operator.
func (c *Controller) TopUp(ctx context.Context, req TopUpRequest) (LedgerResult, error) {
	if req.TenantID == "" {
		return LedgerResult{}, ErrInvalidRequest
	}
	var meta map[string]string
	if n := strings.TrimSpace(req.Note); n != "" {
		meta = map[string]string{"note": n}
	}
	tx, err := c.wallets.Credit(ctx, wallet.CreditRequest{
		TenantID:    req.TenantID,
		AmountMinor: req.AmountMinor,
		Type:        wallet.TxTopUp,
		ReferenceID: req.ReferenceID,
		ActorID:     audit.ActorFromContext(ctx).ID,
		Metadata:    meta,
	})
	if err != nil {
		return LedgerResult{}, c.rejected(ctx, req.TenantID, audit.EventBillingTopUp, req.ReferenceID, err)
	}
	e := mustEntry(req.TenantID, audit.EventBillingTopUp, audit.ResultAllowed, "wallet topped up").
		WithTarget(audit.TargetWalletTransaction, tx.ID).
		WithMeta("amount", wallet.FormatMinor(tx.AmountMinor)).
		WithMeta("currency", tx.Currency).
		WithMeta("balance_after", wallet.FormatMinor(tx.BalanceAfterMinor))
	if req.ReferenceID != "" {
		e = e.WithMeta("reference_id", req.ReferenceID)
	}
	return c.recordLedger(ctx, tx, e)
}

type AdjustRequest struct {
	TenantID    string           `json:"tenant_id"`
	Direction   wallet.Direction `json:"direction"`
	AmountMinor int64            `json:"amount_minor"`
	Reason      string           `json:"reason"`
	ReferenceID string           `json:"reference_id,omitempty"`
}

// Adjust posts a manual correction. A debit adjustment beyond the balance is recorded as BLOCKED.
func (c *Controller) Adjust(ctx context.Context, req AdjustRequest) (LedgerResult, error) {
	if req.TenantID == "" {
		return LedgerResult{}, ErrInvalidRequest
	}
	tx, err := c.wallets.Adjust(ctx, wallet.AdjustRequest{
		TenantID:    req.TenantID,
		Direction:   req.Direction,
		AmountMinor: req.AmountMinor,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
		ActorID:     audit.ActorFromContext(ctx).ID,
	})
	if err != nil {
		return LedgerResult{}, c.rejected(ctx, req.TenantID, audit.EventBillingAdjustment, req.ReferenceID, err)
	}
	e := mustEntry(req.TenantID, audit.EventBillingAdjustment, audit.ResultAllowed, req.Reason).
		WithTarget(audit.TargetWalletTransaction, tx.ID).
		WithMeta("direction", string(tx.Direction)).
		WithMeta("amount", wallet.FormatMinor(tx.AmountMinor)).
		WithMeta("currency", tx.Currency).
		WithMeta("balance_before", wallet.FormatMinor(tx.BalanceBeforeMinor)).
		WithMeta("balance_after", wallet.FormatMinor(tx.BalanceAfterMinor))
	return c.recordLedger(ctx, tx, e)
}

// rejected audits a failed operator mutation. Request validation errors are returned
// without an entry; balance and duplicate rejections are BLOCKED; anything else is FAILED.
func (c *Controller) rejected(ctx context.Context, tenantID string, t audit.EventType, ref string, err error) error {
	var (
		insufficient *wallet.InsufficientBalanceError
		dup          *wallet.DuplicateReferenceError
	)
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount), errors.Is(err, wallet.ErrInvalidArgument):
		return err
	case errors.As(err, &insufficient):
		e := mustEntry(tenantID, t, audit.ResultBlocked, "insufficient balance").
			WithMeta("required", wallet.FormatMinor(insufficient.Required)).
			WithMeta("available", wallet.FormatMinor(insufficient.Available))
		c.recordBestEffort(ctx, e)
		return err
	case errors.As(err, &dup):
		e := mustEntry(tenantID, t, audit.ResultBlocked, "duplicate reference").
			WithTarget(audit.TargetWalletTransaction, dup.Existing.ID).
			WithMeta("reference_id", ref)
		c.recordBestEffort(ctx, e)
		return err
	}
	return c.ledgerFailure(ctx, tenantID, t, ref, err)
}

func (c *Controller) ledgerFailure(ctx context.Context, tenantID string, t audit.EventType, ref string, err error) error {
	err = hard(err)
	logger.From(ctx).Error("ledger operation failed", "tenant_id", tenantID, "event_type", t, "reference_id", ref, "err", err)
	e := mustEntry(tenantID, t, audit.ResultFailed, err.Error())
	if ref != "" {
		e = e.WithMeta("reference_id", ref)
	}
	c.recordBestEffort(ctx, e)
	return err
}

// recordLedger records the ALLOWED entry for a committed mutation. The mutation is
// not reversed when the entry cannot be written; the caller gets StorageUnavailable.
func (c *Controller) recordLedger(ctx context.Context, tx wallet.Transaction, e audit.Entry) (LedgerResult, error) {
	id, err := c.audit.Record(ctx, e)
	if err != nil {
		logger.From(ctx).Error("ledger audit failed", "tenant_id", tx.TenantID, "transaction_id", tx.ID, "err", err)
		return LedgerResult{Transaction: tx}, utils.Unavailable(err)
	}
	logger.From(ctx).Info("ledger mutation recorded", "tenant_id", tx.TenantID, "type", tx.Type, "transaction_id", tx.ID, "amount_minor", tx.AmountMinor)
	return LedgerResult{Transaction: tx, AuditLogID: id}, nil
}

func (c *Controller) recordBestEffort(ctx context.Context, e audit.Entry) {
	if _, err := c.audit.Record(ctx, e); err != nil {
		logger.From(ctx).Error("audit entry dropped", "tenant_id", e.TenantID, "event_type", e.EventType, "err", err)
	}
}

func mustEntry(tenantID string, t audit.EventType, r audit.Result, msg string) audit.Entry {
	e, err := audit.NewEntry(tenantID, t, r, msg)
	if err != nil {
		panic("admission: invalid audit entry " + string(t) + "/" + string(r))
	}
	return e
}
