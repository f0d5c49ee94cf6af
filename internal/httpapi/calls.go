package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"callrounded-manager/internal/calls"
	"callrounded-manager/internal/store"

	"github.com/gin-gonic/gin"
)

func callFilter(c *gin.Context) (calls.Filter, bool) {
	f := calls.Filter{
		AgentID: c.Query("agent_id"),
		Caller:  c.Query("caller"),
	}
	if v := c.Query("status"); v != "" {
		f.Status = store.CallStatus(v)
		if !f.Status.Valid() {
			badRequest(c, "status must be completed, failed, missed or ongoing")
			return f, false
		}
	}
	var ok bool
	if f.From, ok = queryTime(c, "from_date", false); !ok {
		return f, false
	}
	if f.To, ok = queryTime(c, "to_date", true); !ok {
		return f, false
	}
	return f, true
}

func (h *Handlers) ListCalls(c *gin.Context) {
	page, err := calls.ParsePage(c.Query("limit"), c.Query("offset"), c.Query("page"))
	if err != nil {
		fail(c, err)
		return
	}
	f, ok := callFilter(c)
	if !ok {
		return
	}
	out, err := h.Calls.List(c.Request.Context(), currentUser(c), page, f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) ListRichCalls(c *gin.Context) {
	limit, ok := queryInt(c, "limit", calls.DefaultRichLimit)
	if !ok {
		return
	}
	if limit < 1 || limit > calls.MaxRichLimit {
		badRequest(c, fmt.Sprintf("limit must be between 1 and %d", calls.MaxRichLimit))
		return
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return
	}
	if page < 1 {
		badRequest(c, "page must be at least 1")
		return
	}
	f, ok := callFilter(c)
	if !ok {
		return
	}
	out, err := h.Calls.ListRich(c.Request.Context(), currentUser(c), calls.Page{Limit: limit, Page: page}, f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) GetCall(c *gin.Context) {
	out, err := h.Calls.Detail(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		notFound(c, "call")
		return
	}
	c.JSON(http.StatusOK, out)
}

// ExportCalls streams the filtered calls as CSV.
func (h *Handlers) ExportCalls(c *gin.Context) {
	f, ok := callFilter(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if _, err := h.Calls.ExportCSV(c.Request.Context(), currentUser(c), f, &buf); err != nil {
		fail(c, err)
		return
	}
	name := fmt.Sprintf("calls-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
