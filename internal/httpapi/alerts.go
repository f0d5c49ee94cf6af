package httpapi

import (
	"net/http"
	"strconv"

	"callrounded-manager/internal/alerts"
	"callrounded-manager/internal/store"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) Notifications(c *gin.Context) {
	rows, err := h.Notify.Pending(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) ListEvents(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	unnotified, _ := strconv.ParseBool(c.Query("unnotified"))
	rows, err := h.Notify.History(c.Request.Context(), currentUser(c), store.EventFilter{
		Type:       store.EventType(c.Query("type")),
		Unnotified: unnotified,
		Limit:      limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) MarkNotified(c *gin.Context) {
	id, ok := pathUint(c, "id")
	if !ok {
		return
	}
	found, err := h.Notify.Acknowledge(c.Request.Context(), currentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	if !found {
		notFound(c, "event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) MarkAllNotified(c *gin.Context) {
	n, err := h.Notify.AcknowledgeAll(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *Handlers) ListRules(c *gin.Context) {
	rows, err := h.Alerts.ListRules(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) CreateRule(c *gin.Context) {
	var in alerts.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json")
		return
	}
	r, err := h.Alerts.CreateRule(c.Request.Context(), currentUser(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handlers) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, alerts.Presets())
}

func (h *Handlers) CreateRuleFromPreset(c *gin.Context) {
	r, err := h.Alerts.CreateFromPreset(c.Request.Context(), currentUser(c), c.Param("preset"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handlers) UpdateRule(c *gin.Context) {
	var p alerts.RulePatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid json")
		return
	}
	r, err := h.Alerts.UpdateRule(c.Request.Context(), currentUser(c), c.Param("id"), p)
	if err != nil {
		fail(c, err)
		return
	}
	if r == nil {
		notFound(c, "alert rule")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handlers) DeleteRule(c *gin.Context) {
	ok, err := h.Alerts.DeleteRule(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		notFound(c, "alert rule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) EvaluateAlerts(c *gin.Context) {
	fired, err := h.Alerts.Evaluate(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"triggered": len(fired), "alerts": fired})
}

func (h *Handlers) AlertStats(c *gin.Context) {
	st, err := h.Alerts.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
