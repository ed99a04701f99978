package httpapi

import (
	"errors"
	"net/http"

	"compliance-platform/internal/admission"
	"compliance-platform/internal/audit"
	"compliance-platform/internal/auth"
	"compliance-platform/internal/catalog"
	"compliance-platform/internal/pricing"
	"compliance-platform/internal/reporting"
	"compliance-platform/internal/tenant"
	"compliance-platform/internal/wallet"
	"compliance-platform/pkg/logger"
	"compliance-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth      *auth.Manager
	Tenants   *tenant.Service
	Wallets   *wallet.Service
	Prices    *pricing.Service
	Admission *admission.Controller
	Audit     *audit.Recorder
	Reports   *reporting.Service
}

// writeError maps domain errors to HTTP statuses. Storage details never reach the client.
func writeError(c *gin.Context, err error) {
	var insufficient *wallet.InsufficientBalanceError
	var dup *wallet.DuplicateReferenceError

	switch {
	case errors.As(err, &insufficient):
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
			"error":           "insufficient balance",
			"required_minor":  insufficient.Required,
			"available_minor": insufficient.Available,
		})
	case errors.As(err, &dup):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "duplicate reference", "transaction_id": dup.Existing.ID})
	case errors.Is(err, utils.ErrStorageUnavailable):
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInvalidArgument),
		errors.Is(err, admission.ErrInvalidRequest),
		errors.Is(err, catalog.ErrUnknownService),
		errors.Is(err, pricing.ErrInvalidPrice),
		errors.Is(err, tenant.ErrInvalidTenant),
		errors.Is(err, tenant.ErrInvalidParent),
		errors.Is(err, tenant.ErrNotSubTenant),
		errors.Is(err, audit.ErrInvalidFilter),
		errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrWalletNotFound),
		errors.Is(err, wallet.ErrReferenceNotFound),
		errors.Is(err, tenant.ErrNotFound),
		errors.Is(err, pricing.ErrPriceNotFound),
		errors.Is(err, pricing.ErrUnknownTenant):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrWalletExists),
		errors.Is(err, tenant.ErrSlugTaken),
		errors.Is(err, tenant.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrCurrencyMismatch):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		logger.From(c.Request.Context()).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// tenantContext resolves the caller's admission context from the token identity.
func (h Handlers) tenantContext(c *gin.Context) (tenant.Context, bool) {
	id, _ := auth.IdentityFrom(c.Request.Context())
	if id.TenantID == "" {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "tenant required"})
		return tenant.Context{}, false
	}
	tc, err := h.Tenants.ResolveContext(c.Request.Context(), id.TenantID, id.SubTenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) || errors.Is(err, tenant.ErrNotSubTenant) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return tenant.Context{}, false
		}
		writeError(c, err)
		return tenant.Context{}, false
	}
	return tc, true
}

// billedTenant is the tenant whose data the caller sees by default.
func billedTenant(c *gin.Context) string {
	id, _ := auth.IdentityFrom(c.Request.Context())
	if id.SubTenantID != "" {
		return id.SubTenantID
	}
	return id.TenantID
}
