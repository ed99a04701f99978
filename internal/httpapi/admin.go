package httpapi

import (
	"net/http"
	"strings"

	"compliance-platform/internal/admission"
	"compliance-platform/internal/auth"
	"compliance-platform/internal/catalog"
	"compliance-platform/internal/pricing"
	"compliance-platform/internal/tenant"
	"compliance-platform/internal/wallet"

	"github.com/gin-gonic/gin"
)

// --- Tenants ---

type createTenantRequest struct {
	Name     string   `json:"name"`
	Slug     string   `json:"slug"`
	ParentID string   `json:"parent_id"`
	Currency string   `json:"currency"`
	Services []string `json:"services"`
}

func (h Handlers) CreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	var services []catalog.ServiceCode
	if req.Services != nil {
		services = make([]catalog.ServiceCode, 0, len(req.Services))
		for _, s := range req.Services {
			code, err := catalog.Parse(s)
			if err != nil {
				writeError(c, err)
				return
			}
			services = append(services, code)
		}
	}
	t, err := h.Tenants.Create(c.Request.Context(), tenant.CreateRequest{
		Name:     req.Name,
		Slug:     req.Slug,
		ParentID: req.ParentID,
		Currency: req.Currency,
		Services: services,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h Handlers) GetTenant(c *gin.Context) {
	ctx := c.Request.Context()
	t, err := h.Tenants.Get(ctx, c.Param("tenant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	services, err := h.Tenants.Services(ctx, t.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": t, "services": services})
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// SetTenantStatus runs the account-control actions (disable, suspend, enable).
func (h Handlers) SetTenantStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	ctx, id := c.Request.Context(), c.Param("tenant_id")

	var (
		t   tenant.Tenant
		err error
	)
	switch tenant.Status(strings.ToUpper(req.Status)) {
	case tenant.StatusDisabled:
		t, err = h.Tenants.Disable(ctx, id, req.Reason)
	case tenant.StatusSuspended:
		t, err = h.Tenants.Suspend(ctx, id, req.Reason)
	case tenant.StatusActive:
		t, err = h.Tenants.Enable(ctx, id)
	default:
		badRequest(c, "status must be ACTIVE, DISABLED or SUSPENDED")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type serviceToggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (h Handlers) SetTenantService(c *gin.Context) {
	code, err := catalog.Parse(c.Param("service_code"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req serviceToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if err := h.Tenants.SetServiceEnabled(c.Request.Context(), c.Param("tenant_id"), code, req.Enabled); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service_code": code, "enabled": req.Enabled})
}

// --- Wallet operations ---

// moneyRequest accepts either amount_minor or a decimal "amount" string.
type moneyRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Amount      string `json:"amount"`
	ReferenceID string `json:"reference_id"`
	Note        string `json:"note"`
	Reason      string `json:"reason"`
	Direction   string `json:"direction"`
}

func (r moneyRequest) minor() (int64, error) {
	if r.Amount != "" {
		return wallet.ParseAmount(r.Amount)
	}
	return r.AmountMinor, nil
}

func (h Handlers) TopUp(c *gin.Context) {
	var req moneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	amount, err := req.minor()
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.Admission.TopUp(c.Request.Context(), admission.TopUpRequest{
		TenantID:    c.Param("tenant_id"),
		AmountMinor: amount,
		ReferenceID: req.ReferenceID,
		Note:        req.Note,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) Adjust(c *gin.Context) {
	var req moneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	amount, err := req.minor()
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.Admission.Adjust(c.Request.Context(), admission.AdjustRequest{
		TenantID:    c.Param("tenant_id"),
		Direction:   wallet.Direction(strings.ToUpper(req.Direction)),
		AmountMinor: amount,
		Reason:      req.Reason,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Prices ---

type setPriceRequest struct {
	TenantID    string `json:"tenant_id"`
	ServiceCode string `json:"service_code"`
	PriceMinor  int64  `json:"price_minor"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
}

func (h Handlers) SetPrice(c *gin.Context) {
	var req setPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	code, err := catalog.Parse(req.ServiceCode)
	if err != nil {
		writeError(c, err)
		return
	}
	price := req.PriceMinor
	if req.Price != "" {
		if price, err = wallet.ParseAmount(req.Price); err != nil {
			writeError(c, pricing.ErrInvalidPrice)
			return
		}
	}
	actor, _ := auth.UserID(c.Request.Context())
	p, err := h.Prices.SetPrice(c.Request.Context(), pricing.SetPriceRequest{
		TenantID:    req.TenantID,
		ServiceCode: code,
		PriceMinor:  price,
		Currency:    req.Currency,
		ActorID:     actor,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) DeactivatePrice(c *gin.Context) {
	code, err := catalog.Parse(c.Param("service_code"))
	if err != nil {
		writeError(c, err)
		return
	}
	actor, _ := auth.UserID(c.Request.Context())
	p, err := h.Prices.DeactivatePrice(c.Request.Context(), c.Query("tenant_id"), code, actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h Handlers) ListPrices(c *gin.Context) {
	prices, err := h.Prices.ListPrices(c.Request.Context(), c.Query("tenant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices})
}
