package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"compliance-platform/internal/admission"
	"compliance-platform/internal/catalog"
	"compliance-platform/internal/wallet"

	"github.com/gin-gonic/gin"
)

type admitRequest struct {
	ServiceCode string `json:"service_code"`
	ReferenceID string `json:"reference_id"`
}

// Admit decides one unit of usage for the caller's tenant. BLOCKED decisions are
// returned with their mapped status; the body is the decision in both cases.
func (h Handlers) Admit(c *gin.Context) {
	var req admitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.ReferenceID == "" {
		req.ReferenceID = strings.TrimSpace(c.GetHeader(admission.HeaderReferenceID))
	}
	code, err := catalog.Parse(req.ServiceCode)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.ReferenceID == "" {
		badRequest(c, "reference_id required")
		return
	}
	tc, ok := h.tenantContext(c)
	if !ok {
		return
	}

	d, err := h.Admission.Admit(c.Request.Context(), tc, code, req.ReferenceID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(admission.StatusFor(d), d)
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// Refund reverses the usage charge of a reference on the addressed tenant's wallet.
func (h Handlers) Refund(c *gin.Context) {
	var req refundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json")
			return
		}
	}
	tc, err := h.Tenants.ResolveContext(c.Request.Context(), c.Param("tenant_id"), "")
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.Admission.Refund(c.Request.Context(), tc, c.Param("reference_id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) GetBalance(c *gin.Context) {
	bal, err := h.Wallets.GetBalance(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

func (h Handlers) ListTransactions(c *gin.Context) {
	var opts wallet.ListOptions
	var err error
	if opts.From, opts.To, err = timeRange(c); err != nil {
		badRequest(c, err.Error())
		return
	}
	if t := c.Query("type"); t != "" {
		opts.Type = wallet.TxType(strings.ToUpper(t))
	}
	if opts.Limit, opts.Offset, err = paging(c); err != nil {
		badRequest(c, err.Error())
		return
	}

	txs, err := h.Wallets.Transactions(c.Request.Context(), c.Param("tenant_id"), opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs, "limit": opts.Limit, "offset": opts.Offset})
}

func (h Handlers) VerifyLedger(c *gin.Context) {
	report, err := h.Wallets.VerifyChain(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func timeRange(c *gin.Context) (from, to time.Time, err error) {
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			return from, to, errBadParam("from")
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			return from, to, errBadParam("to")
		}
	}
	return from, to, nil
}

func paging(c *gin.Context) (limit, offset int, err error) {
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errBadParam("limit")
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errBadParam("offset")
		}
	}
	return limit, offset, nil
}

type errBadParam string

func (e errBadParam) Error() string { return "invalid " + string(e) }
