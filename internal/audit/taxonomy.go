package audit

// Category groups event types for compliance review.
type Category string

const (
	CategoryAuth     Category = "AUTH"
	CategoryAccount  Category = "ACCOUNT"
	CategoryBilling  Category = "BILLING"
	CategoryService  Category = "SERVICE"
	CategoryAdmin    Category = "ADMIN"
	CategorySecurity Category = "SECURITY"
	CategoryPrivacy  Category = "PRIVACY"
)

// Result is the outcome recorded with an entry.
type Result string

const (
	ResultAllowed Result = "ALLOWED"
	ResultBlocked Result = "BLOCKED"
	ResultFailed  Result = "FAILED"
)

func (r Result) Valid() bool {
	return r == ResultAllowed || r == ResultBlocked || r == ResultFailed
}

// EventType is the closed set of auditable events. Category and the permitted
// results are properties of the type, see Describe.
type EventType string

const (
	EventAuthLogin  EventType = "AUTH_LOGIN"
	EventAuthLogout EventType = "AUTH_LOGOUT"

	EventAccountCreated       EventType = "ACCOUNT_CREATED"
	EventAccountDisabled      EventType = "ACCOUNT_DISABLED"
	EventAccountSuspended     EventType = "ACCOUNT_SUSPENDED"
	EventAccountEnabled       EventType = "ACCOUNT_ENABLED"
	EventAccountAccessBlocked EventType = "ACCOUNT_ACCESS_BLOCKED"

	EventBillingTopUp               EventType = "BILLING_TOPUP"
	EventBillingAdjustment          EventType = "BILLING_ADJUSTMENT"
	EventBillingRefund              EventType = "BILLING_REFUND"
	EventBillingInsufficientBalance EventType = "BILLING_INSUFFICIENT_BALANCE"
	EventBillingDuplicateCharge     EventType = "BILLING_DUPLICATE_CHARGE"

	EventServiceUsageAdmitted      EventType = "SERVICE_USAGE_ADMITTED"
	EventServiceAccessBlocked      EventType = "SERVICE_ACCESS_BLOCKED"
	EventServicePriceNotConfigured EventType = "SERVICE_PRICE_NOT_CONFIGURED"
	EventServiceAdmissionFailed    EventType = "SERVICE_ADMISSION_FAILED"

	EventAdminServiceEnabled   EventType = "ADMIN_SERVICE_ENABLED"
	EventAdminServiceDisabled  EventType = "ADMIN_SERVICE_DISABLED"
	EventAdminPriceUpdated     EventType = "ADMIN_PRICE_UPDATED"
	EventAdminPriceDeactivated EventType = "ADMIN_PRICE_DEACTIVATED"

	EventSecurityTokenRejected EventType = "SECURITY_TOKEN_REJECTED"
	EventSecurityAccessDenied  EventType = "SECURITY_ACCESS_DENIED"

	EventPrivacyAuditExported EventType = "PRIVACY_AUDIT_EXPORTED"
	EventPrivacyAuditQueried  EventType = "PRIVACY_AUDIT_QUERIED"
)

// Descriptor is the static shape of an event type.
type Descriptor struct {
	Category Category
	Results  []Result
}

func (d Descriptor) allows(r Result) bool {
	for _, x := range d.Results {
		if x == r {
			return true
		}
	}
	return false
}

var (
	allowedOrFailed = []Result{ResultAllowed, ResultFailed}
	blockedOnly     = []Result{ResultBlocked}
)

var descriptors = map[EventType]Descriptor{
	EventAuthLogin:  {CategoryAuth, []Result{ResultAllowed, ResultBlocked, ResultFailed}},
	EventAuthLogout: {CategoryAuth, []Result{ResultAllowed}},

	EventAccountCreated:       {CategoryAccount, allowedOrFailed},
	EventAccountDisabled:      {CategoryAccount, allowedOrFailed},
	EventAccountSuspended:     {CategoryAccount, allowedOrFailed},
	EventAccountEnabled:       {CategoryAccount, allowedOrFailed},
	EventAccountAccessBlocked: {CategoryAccount, blockedOnly},

	EventBillingTopUp:               {CategoryBilling, []Result{ResultAllowed, ResultBlocked, ResultFailed}},
	EventBillingAdjustment:          {CategoryBilling, []Result{ResultAllowed, ResultBlocked, ResultFailed}},
	EventBillingRefund:              {CategoryBilling, []Result{ResultAllowed, ResultBlocked, ResultFailed}},
	EventBillingInsufficientBalance: {CategoryBilling, blockedOnly},
	EventBillingDuplicateCharge:     {CategoryBilling, blockedOnly},

	EventServiceUsageAdmitted:      {CategoryService, []Result{ResultAllowed}},
	EventServiceAccessBlocked:      {CategoryService, blockedOnly},
	EventServicePriceNotConfigured: {CategoryService, blockedOnly},
	EventServiceAdmissionFailed:    {CategoryService, []Result{ResultFailed}},

	EventAdminServiceEnabled:   {CategoryAdmin, allowedOrFailed},
	EventAdminServiceDisabled:  {CategoryAdmin, allowedOrFailed},
	EventAdminPriceUpdated:     {CategoryAdmin, allowedOrFailed},
	EventAdminPriceDeactivated: {CategoryAdmin, allowedOrFailed},

	EventSecurityTokenRejected: {CategorySecurity, blockedOnly},
	EventSecurityAccessDenied:  {CategorySecurity, blockedOnly},

	EventPrivacyAuditExported: {CategoryPrivacy, allowedOrFailed},
	EventPrivacyAuditQueried:  {CategoryPrivacy, []Result{ResultAllowed}},
}

// Describe returns the descriptor of a known event type.
func Describe(t EventType) (Descriptor, bool) {
	d, ok := descriptors[t]
	return d, ok
}

func (t EventType) Valid() bool {
	_, ok := descriptors[t]
	return ok
}

// Category of the event type; empty for unknown types.
func (t EventType) Category() Category {
	return descriptors[t].Category
}
