package main

import (
	"net/http"

	"compliance-platform/internal/admission"
	"compliance-platform/internal/catalog"
	"compliance-platform/internal/httpapi"
	"compliance-platform/internal/rbac"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	h        httpapi.Handlers
	authMW   gin.HandlerFunc
	gatherer prometheus.Gatherer
	// devLogin exposes the credential-less login endpoint (never in production).
	devLogin bool
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	h := d.h

	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{})))
	}
	if d.devLogin {
		r.POST("/v1/auth/login", httpapi.RequestContext(), h.Login)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(httpapi.RequestContext(), d.authMW, httpapi.AuditDenied(h.Audit))
	{
		v1.GET("/me", h.Me)
		v1.POST("/auth/logout", h.Logout)

		// ADMISSION routes
		adm := v1.Group("/admissions")
		adm.Use(rbac.RequireTenant())
		{
			adm.POST("", rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleDeveloper), h.Admit)
		}

		// WALLET routes, addressed by tenant
		tenants := v1.Group("/tenants/:tenant_id")
		tenants.Use(rbac.SameTenantOrSuperAdmin("tenant_id"))
		{
			tenants.GET("/balance", rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleDeveloper, rbac.RoleFinance, rbac.RoleAuditor), h.GetBalance)
			tenants.GET("/transactions", rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleFinance, rbac.RoleAuditor), h.ListTransactions)
			tenants.GET("/ledger/verify", rbac.RequireAnyRole(rbac.RoleFinance, rbac.RoleAuditor), h.VerifyLedger)
			tenants.GET("/reports/spend", rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleFinance), h.SpendReport)
		}

		// AUDIT routes
		auditGroup := v1.Group("/audit-logs")
		auditGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAuditor))
		{
			auditGroup.GET("", h.QueryAudit)
			auditGroup.GET("/export",
				rbac.RequireTenant(),
				admission.RequireAdmission(h.Tenants, h.Admission, catalog.AuditExport),
				h.ExportAudit,
			)
		}

		// REPORT routes (billed)
		v1.GET("/reports/usage",
			rbac.RequireTenant(),
			rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleFinance),
			admission.RequireAdmission(h.Tenants, h.Admission, catalog.ComplianceReport),
			h.UsageReport,
		)

		// ADMIN routes
		// Writes are super_admin only; the hidden platform_support role may read.
		admin := v1.Group("/admin")
		{
			read := rbac.RequireAnyRole(rbac.RoleSupport)
			write := rbac.RequireAnyRole()

			admin.POST("/tenants", write, h.CreateTenant)
			admin.GET("/tenants/:tenant_id", read, h.GetTenant)
			admin.POST("/tenants/:tenant_id/status", write, h.SetTenantStatus)
			admin.PUT("/tenants/:tenant_id/services/:service_code", write, h.SetTenantService)
			admin.POST("/tenants/:tenant_id/topups", write, h.TopUp)
			admin.POST("/tenants/:tenant_id/adjustments", write, h.Adjust)
			// Tenants never refund their own usage; failed billable handlers are
			// refunded by the admission middleware.
			admin.POST("/tenants/:tenant_id/refunds/:reference_id", write, h.Refund)

			admin.GET("/prices", read, h.ListPrices)
			admin.PUT("/prices", write, h.SetPrice)
			admin.DELETE("/prices/:service_code", write, h.DeactivatePrice)
		}
	}
}
