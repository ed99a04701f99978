package admission

import (
	"compliance-platform/internal/audit"
	"compliance-platform/internal/catalog"
)

// Decision is the outcome of Admit. BLOCKED is a normal value, never an error.
//
// Required/Available are set only for insufficient balance; they are the only
// balance figures disclosed to the caller.
type Decision struct {
	Result     audit.Result        `json:"result"`
	Reason     string              `json:"reason,omitempty"`
	ReasonCode ReasonCode          `json:"reason_code,omitempty"`
	Service    catalog.ServiceCode `json:"service_code"`

	ReferenceID   string `json:"reference_id"`
	TransactionID string `json:"transaction_id,omitempty"`

	PriceMinor int64  `json:"price_minor,omitempty"`
	Currency   string `json:"currency,omitempty"`

	RequiredMinor  int64 `json:"required_minor,omitempty"`
	AvailableMinor int64 `json:"available_minor,omitempty"`

	AuditLogID string `json:"audit_log_id"`
}

func (d Decision) Allowed() bool { return d.Result == audit.ResultAllowed }

type ReasonCode string

const (
	ReasonAccountDisabled     ReasonCode = "account_disabled"
	ReasonServiceDisabled     ReasonCode = "service_disabled"
	ReasonPriceNotConfigured  ReasonCode = "price_not_configured"
	ReasonInsufficientBalance ReasonCode = "insufficient_balance"
	ReasonDuplicateReference  ReasonCode = "duplicate_reference"
)

var reasonText = map[ReasonCode]string{
	ReasonAccountDisabled:     "account disabled",
	ReasonServiceDisabled:     "service disabled",
	ReasonPriceNotConfigured:  "price not configured",
	ReasonInsufficientBalance: "insufficient balance",
	ReasonDuplicateReference:  "duplicate reference",
}

func blocked(code ReasonCode, svc catalog.ServiceCode, ref string) Decision {
	return Decision{
		Result:      audit.ResultBlocked,
		Reason:      reasonText[code],
		ReasonCode:  code,
		Service:     svc,
		ReferenceID: ref,
	}
}
