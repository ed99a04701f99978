package httpapi

import (
	"net/http"
	"time"

	"compliance-platform/internal/reporting"

	"github.com/gin-gonic/gin"
)

// defaultReportWindow applies when the caller omits from/to.
const defaultReportWindow = 30 * 24 * time.Hour

func reportRange(c *gin.Context) (reporting.TimeRange, bool) {
	from, to, err := timeRange(c)
	if err != nil {
		badRequest(c, err.Error())
		return reporting.TimeRange{}, false
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-defaultReportWindow)
	}
	return reporting.TimeRange{From: from, To: to}, true
}

// UsageReport is billed as COMPLIANCE_REPORT by the admission middleware.
func (h Handlers) UsageReport(c *gin.Context) {
	r, ok := reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.UsageSummary(c.Request.Context(), reporting.UsageSummaryRequest{TenantID: billedTenant(c), Range: r})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) SpendReport(c *gin.Context) {
	r, ok := reportRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.SpendSummary(c.Request.Context(), reporting.SpendSummaryRequest{TenantID: c.Param("tenant_id"), Range: r})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
