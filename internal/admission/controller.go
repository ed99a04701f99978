package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/catalog"
	"compliance-platform/internal/metrics"
	"compliance-platform/internal/pricing"
	"compliance-platform/internal/tenant"
	"compliance-platform/internal/wallet"
	"compliance-platform/pkg/logger"
	"compliance-platform/pkg/utils"

	"golang.org/x/sync/singleflight"
)

// Controller decides whether a billable service call proceeds.
//
// Admission order (first failing step short-circuits):
//  1. account status (effective, including the parent's)
//  2. service enablement
//  3. price resolution
//  4. debit of the billed wallet
//  5. allowed
//
// Every Admit call that reaches step 1 writes exactly one audit entry whose result
// equals the returned decision. A hard failure (storage, misconfiguration) returns
// an error and no decision; a FAILED entry is attempted on a best-effort basis.
type Controller struct {
	tenants Tenants
	prices  Prices
	wallets Wallets
	audit   AuditRecorder
	metrics *metrics.Metrics
	clock   func() time.Time

	replays singleflight.Group
}

type Tenants interface {
	ServiceEnabled(ctx context.Context, tc tenant.Context, code catalog.ServiceCode) (bool, error)
}

type Prices interface {
	Resolve(ctx context.Context, tenantID, subTenantID string, code catalog.ServiceCode) (pricing.Resolved, error)
}

type Wallets interface {
	Debit(ctx context.Context, req wallet.DebitRequest) (wallet.Transaction, error)
	Credit(ctx context.Context, req wallet.CreditRequest) (wallet.Transaction, error)
	Adjust(ctx context.Context, req wallet.AdjustRequest) (wallet.Transaction, error)
	FindByReference(ctx context.Context, tenantID string, t wallet.TxType, referenceID string) (wallet.Transaction, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) (string, error)
	Query(ctx context.Context, f audit.Filter) ([]audit.Entry, error)
}

func NewController(t Tenants, p Prices, w Wallets, rec AuditRecorder, m *metrics.Metrics) *Controller {
	return &Controller{tenants: t, prices: p, wallets: w, audit: rec, metrics: m, clock: time.Now}
}

var ErrInvalidRequest = errors.New("admission: invalid request")

// Admit runs the admission pipeline for one unit of service identified by referenceID.
func (c *Controller) Admit(ctx context.Context, tc tenant.Context, code catalog.ServiceCode, referenceID string) (Decision, error) {
	start := c.clock()
	billed := tc.BilledTenantID()
	if billed == "" || referenceID == "" {
		return Decision{}, fmt.Errorf("%w: tenant and reference are required", ErrInvalidRequest)
	}
	if !code.Valid() {
		err := fmt.Errorf("%w: %w", ErrInvalidRequest, catalog.ErrUnknownService)
		c.recordFailure(ctx, billed, audit.EventServiceAdmissionFailed, code, referenceID, err)
		return Decision{}, err
	}

	// 1) account status
	if tc.Status != tenant.StatusActive {
		d := blocked(ReasonAccountDisabled, code, referenceID)
		e := c.entry(billed, audit.EventAccountAccessBlocked, d).WithMeta("status", string(tc.Status))
		return c.finish(ctx, tc, d, e, start)
	}

	// 2) service enablement
	enabled, err := c.tenants.ServiceEnabled(ctx, tc, code)
	if err != nil {
		return c.fail(ctx, billed, code, referenceID, err)
	}
	if !enabled {
		d := blocked(ReasonServiceDisabled, code, referenceID)
		return c.finish(ctx, tc, d, c.entry(billed, audit.EventServiceAccessBlocked, d), start)
	}

	// 3) price
	price, err := c.prices.Resolve(ctx, tc.TenantID, tc.SubTenantID, code)
	if errors.Is(err, pricing.ErrPriceNotConfigured) {
		d := blocked(ReasonPriceNotConfigured, code, referenceID)
		return c.finish(ctx, tc, d, c.entry(billed, audit.EventServicePriceNotConfigured, d), start)
	}
	if err != nil {
		return c.fail(ctx, billed, code, referenceID, err)
	}

	// 4) debit
	tx, err := c.wallets.Debit(ctx, wallet.DebitRequest{
		TenantID:    billed,
		AmountMinor: price.PriceMinor,
		Currency:    price.Currency,
		ServiceCode: string(code),
		ReferenceID: referenceID,
		ActorID:     audit.ActorFromContext(ctx).ID,
		Metadata:    map[string]string{"price_level": string(price.Level)},
	})
	var (
		insufficient *wallet.InsufficientBalanceError
		duplicate    *wallet.DuplicateReferenceError
	)
	switch {
	case errors.As(err, &insufficient):
		d := blocked(ReasonInsufficientBalance, code, referenceID)
		d.PriceMinor, d.Currency = price.PriceMinor, price.Currency
		d.RequiredMinor, d.AvailableMinor = insufficient.Required, insufficient.Available
		e := c.entry(billed, audit.EventBillingInsufficientBalance, d).
			WithMeta("required", wallet.FormatMinor(insufficient.Required)).
			WithMeta("available", wallet.FormatMinor(insufficient.Available)).
			WithMeta("currency", price.Currency)
		return c.finish(ctx, tc, d, e, start)
	case errors.As(err, &duplicate):
		// Concurrent retries of one reference share a single replay attempt; the
		// others fall through to BLOCKED with their own entry.
		var ran bool
		v, _, _ := c.replays.Do(duplicate.Existing.ID, func() (any, error) {
			ran = true
			return c.replay(ctx, tc, code, duplicate.Existing, start), nil
		})
		out := v.(replayOutcome)
		switch {
		case out.checkErr != nil:
			return c.fail(ctx, billed, code, referenceID, out.checkErr)
		case out.replayed && ran:
			return out.decision, out.err
		}
		d := blocked(ReasonDuplicateReference, code, referenceID)
		d.TransactionID = duplicate.Existing.ID
		e := c.entry(billed, audit.EventBillingDuplicateCharge, d).
			WithTarget(audit.TargetWalletTransaction, duplicate.Existing.ID)
		return c.finish(ctx, tc, d, e, start)
	case err != nil:
		return c.fail(ctx, billed, code, referenceID, err)
	}

	// 5) allowed
	return c.admitted(ctx, tc, code, tx, start, false)
}

// admitted records the ALLOWED entry for a committed debit. When the entry cannot
// be written the debit stands and the caller gets ErrStorageUnavailable; a retry
// with the same reference replays this step instead of charging again.
func (c *Controller) admitted(ctx context.Context, tc tenant.Context, code catalog.ServiceCode, tx wallet.Transaction, start time.Time, replayed bool) (Decision, error) {
	d := Decision{
		Result:        audit.ResultAllowed,
		Service:       code,
		ReferenceID:   tx.ReferenceID,
		TransactionID: tx.ID,
		PriceMinor:    tx.AmountMinor,
		Currency:      tx.Currency,
	}
	e := c.entry(tc.BilledTenantID(), audit.EventServiceUsageAdmitted, d).
		WithTarget(audit.TargetWalletTransaction, tx.ID).
		WithMeta("price", wallet.FormatMinor(tx.AmountMinor)).
		WithMeta("currency", tx.Currency).
		WithMeta("price_level", tx.Metadata["price_level"]).
		WithMeta("balance_before", wallet.FormatMinor(tx.BalanceBeforeMinor)).
		WithMeta("balance_after", wallet.FormatMinor(tx.BalanceAfterMinor))
	if replayed {
		e = e.WithMeta("replayed", true)
	}
	out, err := c.finish(ctx, tc, d, e, start)
	if err != nil {
		logger.From(ctx).Warn("debit committed without admission entry",
			"tenant_id", tx.TenantID, "reference_id", tx.ReferenceID, "transaction_id", tx.ID)
		return Decision{}, err
	}
	return out, nil
}

type replayOutcome struct {
	replayed bool
	decision Decision
	err      error
	checkErr error
}

// replay admits an existing DEDUCTION again when its ALLOWED entry was never
// written and it was not refunded since.
func (c *Controller) replay(ctx context.Context, tc tenant.Context, code catalog.ServiceCode, tx wallet.Transaction, start time.Time) replayOutcome {
	ok, err := c.unrecorded(ctx, tc.BilledTenantID(), code, tx)
	if err != nil {
		return replayOutcome{checkErr: err}
	}
	if !ok {
		return replayOutcome{}
	}
	d, err := c.admitted(ctx, tc, code, tx, start, true)
	return replayOutcome{replayed: true, decision: d, err: err}
}

func (c *Controller) unrecorded(ctx context.Context, tenantID string, code catalog.ServiceCode, tx wallet.Transaction) (bool, error) {
	if tx.Type != wallet.TxDeduction || tx.ServiceCode != string(code) {
		return false, nil
	}
	_, err := c.wallets.FindByReference(ctx, tenantID, wallet.TxRefund, tx.ReferenceID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, wallet.ErrReferenceNotFound):
		return false, err
	}
	found, err := c.audit.Query(ctx, audit.Filter{
		TenantID:   tenantID,
		EventTypes: []audit.EventType{audit.EventServiceUsageAdmitted},
		TargetType: audit.TargetWalletTransaction,
		TargetID:   tx.ID,
		Limit:      1,
	})
	if err != nil {
		return false, err
	}
	return len(found) == 0, nil
}

func (c *Controller) entry(tenantID string, t audit.EventType, d Decision) audit.Entry {
	msg := d.Reason
	if d.Allowed() {
		msg = "service usage admitted"
	}
	return mustEntry(tenantID, t, d.Result, msg).WithMeta("service_code", string(d.Service)).WithMeta("reference_id", d.ReferenceID)
}

// finish records the single audit entry of an admission and emits metrics and logs.
func (c *Controller) finish(ctx context.Context, tc tenant.Context, d Decision, e audit.Entry, start time.Time) (Decision, error) {
	if tc.SubTenantID != "" {
		e = e.WithMeta("parent_tenant_id", tc.TenantID)
	}
	elapsed := c.clock().Sub(start)
	id, err := c.audit.Record(ctx, e.WithDuration(elapsed))
	if err != nil {
		logger.From(ctx).Error("admission audit failed", "tenant_id", e.TenantID, "service_code", d.Service, "reference_id", d.ReferenceID, "err", err)
		return Decision{}, utils.Unavailable(err)
	}
	d.AuditLogID = id
	c.metrics.ObserveAdmission(string(d.Service), string(d.Result), string(d.ReasonCode), elapsed)

	log := logger.From(ctx).With("tenant_id", e.TenantID, "service_code", d.Service, "reference_id", d.ReferenceID)
	if d.Allowed() {
		log.Info("admission allowed", "transaction_id", d.TransactionID, "price_minor", d.PriceMinor)
	} else {
		log.Warn("admission blocked", "reason", d.ReasonCode)
	}
	return d, nil
}

// fail handles a hard error: no decision, best-effort FAILED entry.
func (c *Controller) fail(ctx context.Context, tenantID string, code catalog.ServiceCode, ref string, err error) (Decision, error) {
	err = hard(err)
	c.recordFailure(ctx, tenantID, audit.EventServiceAdmissionFailed, code, ref, err)
	c.metrics.ObserveAdmission(string(code), string(audit.ResultFailed), "error", 0)
	return Decision{}, err
}

func (c *Controller) recordFailure(ctx context.Context, tenantID string, t audit.EventType, code catalog.ServiceCode, ref string, cause error) {
	log := logger.From(ctx)
	log.Error("admission failed", "tenant_id", tenantID, "service_code", code, "reference_id", ref, "err", cause)

	e, err := audit.NewEntry(tenantID, t, audit.ResultFailed, cause.Error())
	if err != nil {
		return
	}
	e = e.WithMeta("service_code", string(code)).WithMeta("reference_id", ref)
	if _, err := c.audit.Record(ctx, e); err != nil {
		log.Error("audit of failed admission dropped", "tenant_id", tenantID, "reference_id", ref, "err", err)
	}
}

// hard keeps configuration and context errors recognizable and treats the rest as storage failures.
func hard(err error) error {
	switch {
	case errors.Is(err, wallet.ErrCurrencyMismatch),
		errors.Is(err, wallet.ErrWalletNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return utils.Unavailable(err)
}
