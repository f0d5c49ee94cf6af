package httpapi

import (
	"net/http"

	"callrounded-manager/internal/reporting"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) DashboardStats(c *gin.Context) {
	out, err := h.Reporting.Dashboard(c.Request.Context(), reporting.DashboardRequest{
		UserID:   currentUser(c),
		FromDate: c.Query("from_date"),
		ToDate:   c.Query("to_date"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) CallAnalytics(c *gin.Context) {
	out, err := h.Reporting.Analytics(c.Request.Context(), reporting.AnalyticsRequest{
		UserID:   currentUser(c),
		Period:   c.Query("period"),
		FromDate: c.Query("from_date"),
		ToDate:   c.Query("to_date"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) Trends(c *gin.Context) {
	days, ok := queryInt(c, "days", 0)
	if !ok {
		return
	}
	out, err := h.Reporting.Trends(c.Request.Context(), currentUser(c), days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) PeakHours(c *gin.Context) {
	days, ok := queryInt(c, "days", 0)
	if !ok {
		return
	}
	out, err := h.Reporting.PeakHours(c.Request.Context(), currentUser(c), days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) WeeklyReports(c *gin.Context) {
	limit, ok := queryInt(c, "limit", reporting.DefaultWeeklyReports)
	if !ok {
		return
	}
	out, err := h.Reporting.WeeklyReports(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) WeeklyReportConfig(c *gin.Context) {
	out, err := h.Reporting.WeeklyConfig(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) UpdateWeeklyReportConfig(c *gin.Context) {
	var p reporting.WeeklyConfigPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid json")
		return
	}
	out, err := h.Reporting.UpdateWeeklyConfig(c.Request.Context(), currentUser(c), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// SendWeeklyReport generates last week's report immediately. Disabled reports answer 400.
func (h *Handlers) SendWeeklyReport(c *gin.Context) {
	out, err := h.Reporting.SendWeeklyNow(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
