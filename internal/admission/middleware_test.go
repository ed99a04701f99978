package admission

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"compliance-platform/internal/auth"
	"compliance-platform/internal/catalog"

	"github.com/gin-gonic/gin"
)

func newRouter(f *fixture, id auth.Identity, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	})
	r.POST("/kyc", RequireAdmission(f.tenants, f.ctrl, catalog.KYCBasic), func(c *gin.Context) {
		d, ok := DecisionFrom(c)
		if !ok || !d.Allowed() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decision missing"})
			return
		}
		c.JSON(status, gin.H{"transaction_id": d.TransactionID})
	})
	return r
}

func post(r *gin.Engine, ref string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/kyc", nil)
	if ref != "" {
		req.Header.Set(HeaderReferenceID, ref)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAdmission_StatusMapping(t *testing.T) {
	f := newFixture(t)
	tn := f.tenant(t, "acme", "", 150)
	f.price(t, "", catalog.KYCBasic, 100)
	r := newRouter(f, auth.Identity{UserID: "u1", TenantID: tn.ID, Role: "developer"}, http.StatusOK)

	if w := post(r, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("missing reference: expected 400, got %d", w.Code)
	}
	if w := post(r, "ref-1"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if w := post(r, "ref-1"); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", w.Code)
	}
	if w := post(r, "ref-2"); w.Code != http.StatusPaymentRequired {
		t.Fatalf("insufficient: expected 402, got %d", w.Code)
	}
	if got := f.balance(t, tn.ID); got != 50 {
		t.Fatalf("expected one charge, balance %d", got)
	}
}

func TestRequireAdmission_DisabledAccountForbidden(t *testing.T) {
	f := newFixture(t)
	tn := f.tenant(t, "acme", "", 1000)
	f.price(t, "", catalog.KYCBasic, 100)
	if _, err := f.tenants.Disable(context.Background(), tn.ID, "closed"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	r := newRouter(f, auth.Identity{UserID: "u1", TenantID: tn.ID, Role: "developer"}, http.StatusOK)

	if w := post(r, "ref-1"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAdmission_UnknownTenantForbidden(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f, auth.Identity{UserID: "u1", TenantID: "missing", Role: "developer"}, http.StatusOK)

	if w := post(r, "ref-1"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAdmission_RefundsWhenHandlerFails(t *testing.T) {
	f := newFixture(t)
	tn := f.tenant(t, "acme", "", 1000)
	f.price(t, "", catalog.KYCBasic, 100)
	r := newRouter(f, auth.Identity{UserID: "u1", TenantID: tn.ID, Role: "developer"}, http.StatusBadGateway)

	if w := post(r, "ref-1"); w.Code != http.StatusBadGateway {
		t.Fatalf("expected handler status 502, got %d", w.Code)
	}
	if got := f.balance(t, tn.ID); got != 1000 {
		t.Fatalf("expected automatic refund, balance %d", got)
	}
}
