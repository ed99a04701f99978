package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"compliance-platform/internal/audit"
	"compliance-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// AuditRecorder receives SECURITY_TOKEN_REJECTED entries. Optional.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) (string, error)
}

// RequireAccessToken verifies an access token and injects identity into request context,
// both as an auth.Identity and as the audit actor. It does not perform RBAC checks;
// those belong to internal/rbac. Rejections are audited when rec is non-nil.
func RequireAccessToken(m *Manager, rec AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			reject(c, rec, "missing bearer token")
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			reject(c, rec, "invalid token: "+err.Error())
			return
		}

		id := claims.Identity()
		ctx := WithIdentity(c.Request.Context(), id)
		ctx = audit.WithActor(ctx, audit.Actor{ID: id.UserID, Role: id.Role, Type: audit.ActorType(id.ActorType)})
		ctx = logger.WithAttrs(ctx, "tenant_id", id.TenantID, "user_id", id.UserID)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("user_id", id.UserID)
		c.Set("tenant_id", id.TenantID)
		c.Set("role", id.Role)

		c.Next()
	}
}

func reject(c *gin.Context, rec AuditRecorder, reason string) {
	if rec != nil {
		e, err := audit.NewEntry("", audit.EventSecurityTokenRejected, audit.ResultBlocked, reason)
		if err == nil {
			if _, err := rec.Record(c.Request.Context(), e.WithMeta("path", c.FullPath())); err != nil {
				logger.From(c.Request.Context()).Error("audit token rejection failed", "err", err)
			}
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
}
