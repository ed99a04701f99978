package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/auth"
	"compliance-platform/internal/rbac"
	"compliance-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// auditFilter parses query parameters. Tenant-scoped callers always see their own
// tenant only; super_admin may pass tenant_id or omit it.
func auditFilter(c *gin.Context) (audit.Filter, error) {
	var f audit.Filter
	var err error
	if f.From, f.To, err = timeRange(c); err != nil {
		return f, err
	}
	if f.Limit, f.Offset, err = paging(c); err != nil {
		return f, err
	}
	for _, v := range splitParam(c, "event_type") {
		f.EventTypes = append(f.EventTypes, audit.EventType(strings.ToUpper(v)))
	}
	for _, v := range splitParam(c, "result") {
		f.Results = append(f.Results, audit.Result(strings.ToUpper(v)))
	}
	for _, v := range splitParam(c, "category") {
		f.Categories = append(f.Categories, audit.Category(strings.ToUpper(v)))
	}
	f.ActorID = c.Query("actor_id")
	f.TargetType = c.Query("target_type")
	f.TargetID = c.Query("target_id")

	id, _ := auth.IdentityFrom(c.Request.Context())
	if rbac.IsSuperAdmin(id.Role) {
		f.TenantID = c.Query("tenant_id")
	} else {
		f.TenantID = billedTenant(c)
	}
	return f, nil
}

// splitParam accepts both repeated and comma separated values.
func splitParam(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func (h Handlers) QueryAudit(c *gin.Context) {
	f, err := auditFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	entries, err := h.Audit.Query(ctx, f)
	if err != nil {
		writeError(c, err)
		return
	}
	h.recordPrivacy(ctx, f.TenantID, audit.EventPrivacyAuditQueried, audit.ResultAllowed, len(entries))
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// ExportAudit returns every matching entry as CSV. The export itself is billed
// by the admission middleware in front of this handler.
func (h Handlers) ExportAudit(c *gin.Context) {
	f, err := auditFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	var buf bytes.Buffer
	n, err := h.Audit.Export(ctx, f, &buf)
	if err != nil {
		h.recordPrivacy(ctx, f.TenantID, audit.EventPrivacyAuditExported, audit.ResultFailed, n)
		writeError(c, err)
		return
	}
	h.recordPrivacy(ctx, f.TenantID, audit.EventPrivacyAuditExported, audit.ResultAllowed, n)

	name := fmt.Sprintf("audit-%s.csv", time.Now().UTC().Format("20060102T150405Z"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h Handlers) recordPrivacy(ctx context.Context, tenantID string, t audit.EventType, r audit.Result, rows int) {
	e, err := audit.NewEntry(tenantID, t, r, "audit log accessed")
	if err != nil {
		return
	}
	e = e.WithTarget(audit.TargetAuditLog, "").WithMeta("rows", rows)
	if _, err := h.Audit.Record(ctx, e); err != nil {
		logger.From(ctx).Error("audit privacy event failed", "event_type", t, "err", err)
	}
}
