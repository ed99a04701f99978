package reporting

import "time"

// TimeRange is half-open: From inclusive, To exclusive.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

// UsageSummaryRequest asks for per-service usage of one billed tenant.
// Tenant isolation: TenantID is required.
type UsageSummaryRequest struct {
	TenantID string    `json:"tenant_id"`
	Range    TimeRange `json:"range"`
}

// ServiceUsage is derived from DEDUCTION and REFUND ledger entries carrying the code.
type ServiceUsage struct {
	ServiceCode   string `json:"service_code"`
	Admitted      int    `json:"admitted"`
	Refunded      int    `json:"refunded"`
	DebitedMinor  int64  `json:"debited_minor"`
	RefundedMinor int64  `json:"refunded_minor"`
	NetMinor      int64  `json:"net_minor"`
	Net           string `json:"net"`
}

type UsageSummary struct {
	TenantID string         `json:"tenant_id"`
	Currency string         `json:"currency"`
	Range    TimeRange      `json:"range"`
	Services []ServiceUsage `json:"services"`

	TotalNetMinor int64  `json:"total_net_minor"`
	TotalNet      string `json:"total_net"`
}

// SpendSummaryRequest requests aggregated money movement for one wallet.
type SpendSummaryRequest struct {
	TenantID string    `json:"tenant_id"`
	Range    TimeRange `json:"range"`
}

type SpendSummary struct {
	TenantID string `json:"tenant_id"`
	Currency string `json:"currency"`

	TotalDebitMinor  int64 `json:"total_debit_minor"`
	TotalCreditMinor int64 `json:"total_credit_minor"`
	NetDeltaMinor    int64 `json:"net_delta_minor"`

	UsageDebitMinor int64 `json:"usage_debit_minor"`
	RefundMinor     int64 `json:"refund_minor"`
	TopUpMinor      int64 `json:"top_up_minor"`
	AdjustmentMinor int64 `json:"adjustment_minor"`
}
