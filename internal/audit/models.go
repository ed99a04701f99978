package audit

import "time"

// Entry is an immutable, append-only audit log record.
//
// Invariants:
// - Entries are never updated or deleted by application code.
// - Category is derived from EventType and Result must be one the type permits.
// - tenant_id is required except for SECURITY events raised before a tenant is known,
//   ADMIN events on platform-wide configuration and PRIVACY reads spanning all tenants.
//
// Storage (Postgres): audit_logs, INSERT-only, indexed on (tenant_id, created_at) and event_type.
type Entry struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id,omitempty" db:"tenant_id"`

	EventType EventType `json:"event_type" db:"event_type"`
	Category  Category  `json:"category" db:"category"`
	Result    Result    `json:"result" db:"result"`

	Actor Actor `json:"actor"`

	// Target identifies the entity acted upon (wallet_transaction, tenant, service_price, ...).
	TargetType string `json:"target_type,omitempty" db:"target_type"`
	TargetID   string `json:"target_id,omitempty" db:"target_id"`

	// Message is a short human-readable description.
	Message string `json:"message,omitempty" db:"message"`

	Metadata map[string]any `json:"metadata,omitempty" db:"metadata"`

	Request RequestInfo `json:"request"`

	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	DurationMs *int64    `json:"duration_ms,omitempty" db:"duration_ms"`
}

type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorSystem ActorType = "SYSTEM"
	ActorAPIKey ActorType = "API_KEY"
)

type Actor struct {
	ID   string    `json:"id,omitempty" db:"actor_id"`
	Role string    `json:"role,omitempty" db:"actor_role"`
	Type ActorType `json:"type" db:"actor_type"`
}

// SystemActor is used when no authenticated identity is attached to the context.
var SystemActor = Actor{ID: "system", Type: ActorSystem}

// RequestInfo captures the originating request. Best-effort; may be empty.
type RequestInfo struct {
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string `json:"user_agent,omitempty" db:"user_agent"`
	RequestID string `json:"request_id,omitempty" db:"request_id"`
}

// Target kinds used across the platform.
const (
	TargetTenant            = "tenant"
	TargetWallet            = "wallet"
	TargetWalletTransaction = "wallet_transaction"
	TargetServicePrice      = "service_price"
	TargetService           = "service"
	TargetAuditLog          = "audit_log"
)

// NewEntry builds an entry for a known event type, deriving its category.
func NewEntry(tenantID string, t EventType, r Result, message string) (Entry, error) {
	e := Entry{TenantID: tenantID, EventType: t, Result: r, Message: message}
	d, ok := Describe(t)
	if !ok {
		return Entry{}, ErrInvalidEntry
	}
	e.Category = d.Category
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Validate checks the derived invariants of the entry.
func (e Entry) Validate() error {
	d, ok := Describe(e.EventType)
	if !ok {
		return ErrInvalidEntry
	}
	if e.Category != "" && e.Category != d.Category {
		return ErrInvalidEntry
	}
	if !e.Result.Valid() || !d.allows(e.Result) {
		return ErrInvalidEntry
	}
	if e.TenantID == "" && !platformScoped(d.Category) {
		return ErrInvalidEntry
	}
	return nil
}

func platformScoped(c Category) bool {
	return c == CategorySecurity || c == CategoryAdmin || c == CategoryPrivacy
}

// WithTarget returns a copy of e pointing at the given entity.
func (e Entry) WithTarget(targetType, targetID string) Entry {
	e.TargetType = targetType
	e.TargetID = targetID
	return e
}

// WithMeta returns a copy of e with key set in Metadata.
func (e Entry) WithMeta(key string, value any) Entry {
	m := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		m[k] = v
	}
	m[key] = value
	e.Metadata = m
	return e
}

// WithDuration records how long the audited operation took.
func (e Entry) WithDuration(d time.Duration) Entry {
	ms := d.Milliseconds()
	e.DurationMs = &ms
	return e
}
