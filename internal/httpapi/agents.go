package httpapi

import (
	"net/http"

	"callrounded-manager/internal/store"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListAgents returns the caller's agents plus those assigned to them.
func (h *Handlers) ListAgents(c *gin.Context) {
	rows, err := h.Store.GetAccessibleAgents(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) GetAgent(c *gin.Context) {
	a, err := h.Store.GetAccessibleAgent(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if a == nil {
		notFound(c, "agent")
		return
	}
	c.JSON(http.StatusOK, a)
}

// PatchAgent sets the agent status to one of active, inactive, paused.
func (h *Handlers) PatchAgent(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status required")
		return
	}
	status := store.AgentStatus(req.Status)
	if !status.Valid() {
		badRequest(c, "status must be active, inactive or paused")
		return
	}
	a, err := h.Store.SetAgentStatus(c.Request.Context(), currentUser(c), c.Param("id"), status)
	if err != nil {
		fail(c, err)
		return
	}
	if a == nil {
		notFound(c, "agent")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handlers) ToggleAgent(c *gin.Context) {
	a, err := h.Store.ToggleAgentStatus(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if a == nil {
		notFound(c, "agent")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handlers) ListPhoneNumbers(c *gin.Context) {
	rows, err := h.Store.GetPhoneNumbersByUserID(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) GetPhoneNumber(c *gin.Context) {
	p, err := h.Store.GetPhoneNumberForUser(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if p == nil {
		notFound(c, "phone number")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handlers) PatchPhoneNumber(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status required")
		return
	}
	status := store.PhoneNumberStatus(req.Status)
	if !status.Valid() {
		badRequest(c, "status must be active or inactive")
		return
	}
	p, err := h.Store.SetPhoneNumberStatus(c.Request.Context(), currentUser(c), c.Param("id"), status)
	if err != nil {
		fail(c, err)
		return
	}
	if p == nil {
		notFound(c, "phone number")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handlers) TogglePhoneNumber(c *gin.Context) {
	p, err := h.Store.TogglePhoneNumberStatus(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if p == nil {
		notFound(c, "phone number")
		return
	}
	c.JSON(http.StatusOK, p)
}
