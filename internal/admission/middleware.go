package admission

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"compliance-platform/internal/auth"
	"compliance-platform/internal/catalog"
	"compliance-platform/internal/tenant"
	"compliance-platform/internal/wallet"
	"compliance-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	HeaderReferenceID = "X-Reference-Id"
	decisionKey       = "admission_decision"
)

// ContextResolver turns the authenticated identity into the admission context.
type ContextResolver interface {
	ResolveContext(ctx context.Context, tenantID, subTenantID string) (tenant.Context, error)
}

// RequireAdmission charges one unit of code before the handler runs.
//
// Status mapping: missing reference 400, insufficient balance 402, duplicate
// reference 409, any other BLOCKED 403, hard failure 503. When the handler itself
// answers with a 5xx the usage is refunded.
func RequireAdmission(resolver ContextResolver, ctrl *Controller, code catalog.ServiceCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ref := strings.TrimSpace(c.GetHeader(HeaderReferenceID))
		if ref == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Reference-Id header required"})
			return
		}

		id, _ := auth.IdentityFrom(ctx)
		if id.TenantID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "tenant required"})
			return
		}
		tc, err := resolver.ResolveContext(ctx, id.TenantID, id.SubTenantID)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrNotFound), errors.Is(err, tenant.ErrNotSubTenant):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			default:
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
			}
			return
		}

		d, err := ctrl.Admit(ctx, tc, code, ref)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
			return
		}
		if !d.Allowed() {
			c.AbortWithStatusJSON(StatusFor(d), d)
			return
		}

		c.Set(decisionKey, d)
		c.Header(HeaderReferenceID, ref)
		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			// handler failed after the charge; the caller did not get the service
			_, err := ctrl.Refund(context.WithoutCancel(ctx), tc, ref, "handler failed")
			if err != nil && !errors.Is(err, wallet.ErrDuplicateReference) {
				logger.From(ctx).Error("automatic refund failed", "tenant_id", tc.BilledTenantID(), "reference_id", ref, "err", err)
			}
		}
	}
}

// StatusFor maps a BLOCKED decision to an HTTP status.
func StatusFor(d Decision) int {
	switch d.ReasonCode {
	case ReasonInsufficientBalance:
		return http.StatusPaymentRequired
	case ReasonDuplicateReference:
		return http.StatusConflict
	case "":
		return http.StatusOK
	}
	return http.StatusForbidden
}

// DecisionFrom returns the decision stored by RequireAdmission.
func DecisionFrom(c *gin.Context) (Decision, bool) {
	v, ok := c.Get(decisionKey)
	if !ok {
		return Decision{}, false
	}
	d, ok := v.(Decision)
	return d, ok
}
