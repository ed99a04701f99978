package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/auth"
	"compliance-platform/internal/pricing"
	"compliance-platform/internal/tenant"
	"compliance-platform/internal/wallet"
	"compliance-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

func testContext(target string, id *auth.Identity) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *id))
	}
	c.Request = req
	return c, w
}

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient", &wallet.InsufficientBalanceError{Required: 150, Available: 100}, http.StatusPaymentRequired},
		{"duplicate", &wallet.DuplicateReferenceError{Existing: wallet.Transaction{ID: "tx-1"}}, http.StatusConflict},
		{"storage", utils.Unavailable(errors.New("conn reset")), http.StatusServiceUnavailable},
		{"invalid amount", fmt.Errorf("top up: %w", wallet.ErrInvalidAmount), http.StatusBadRequest},
		{"tenant missing", tenant.ErrNotFound, http.StatusNotFound},
		{"price for unknown tenant", pricing.ErrUnknownTenant, http.StatusNotFound},
		{"slug taken", tenant.ErrSlugTaken, http.StatusConflict},
		{"currency", wallet.ErrCurrencyMismatch, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := testContext("/", nil)
			writeError(c, tc.err)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestWriteError_HidesStorageDetails(t *testing.T) {
	c, w := testContext("/", nil)
	writeError(c, utils.Unavailable(errors.New("dial tcp 10.0.0.5:5432")))
	if strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Fatalf("storage detail leaked: %s", w.Body.String())
	}
}

func TestAuditFilter_ScopesTenantCallers(t *testing.T) {
	c, _ := testContext("/?tenant_id=other&event_type=billing_refund,auth_login&result=blocked&limit=10",
		&auth.Identity{UserID: "u", TenantID: "t1", SubTenantID: "s1", Role: "auditor"})

	f, err := auditFilter(c)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.TenantID != "s1" {
		t.Fatalf("expected sub-tenant scope, got %q", f.TenantID)
	}
	if len(f.EventTypes) != 2 || f.EventTypes[0] != audit.EventBillingRefund || f.EventTypes[1] != audit.EventAuthLogin {
		t.Fatalf("unexpected event types: %v", f.EventTypes)
	}
	if len(f.Results) != 1 || f.Results[0] != audit.ResultBlocked || f.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", f)
	}
}

func TestAuditFilter_SuperAdminChoosesTenant(t *testing.T) {
	c, _ := testContext("/?tenant_id=other", &auth.Identity{UserID: "root", Role: auth.PlatformRole})
	f, err := auditFilter(c)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if f.TenantID != "other" {
		t.Fatalf("expected requested tenant, got %q", f.TenantID)
	}
}

func TestAuditFilter_RejectsBadParams(t *testing.T) {
	for _, q := range []string{"from=yesterday", "limit=-1", "offset=x"} {
		c, _ := testContext("/?"+q, &auth.Identity{UserID: "u", TenantID: "t1", Role: "auditor"})
		if _, err := auditFilter(c); err == nil {
			t.Fatalf("expected error for %q", q)
		}
	}
}
