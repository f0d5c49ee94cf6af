package httpapi

import (
	"net/http"
	"strings"

	"callrounded-manager/pkg/logger"

	"github.com/gin-gonic/gin"
)

// assignmentTarget resolves the :id user of the assignment routes.
func (h *Handlers) assignmentTarget(c *gin.Context) (uint, bool) {
	id, ok := pathUint(c, "id")
	if !ok {
		return 0, false
	}
	u, err := h.Store.GetUserByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return 0, false
	}
	if u == nil {
		notFound(c, "user")
		return 0, false
	}
	return u.ID, true
}

func (h *Handlers) ListUserAgents(c *gin.Context) {
	id, ok := h.assignmentTarget(c)
	if !ok {
		return
	}
	rows, err := h.Store.ListAgentAssignments(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type assignAgentRequest struct {
	AgentID string `json:"agent_external_id" binding:"required"`
}

// AssignUserAgent gives the user read access to one agent.
func (h *Handlers) AssignUserAgent(c *gin.Context) {
	id, ok := h.assignmentTarget(c)
	if !ok {
		return
	}
	var req assignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "agent_external_id required")
		return
	}
	agentID := strings.TrimSpace(req.AgentID)
	a, err := h.Store.GetAgentByID(c.Request.Context(), agentID)
	if err != nil {
		fail(c, err)
		return
	}
	if a == nil {
		notFound(c, "agent")
		return
	}
	out, err := h.Store.AssignAgent(c.Request.Context(), id, a.ID, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	if out == nil {
		unavailable(c, "database")
		return
	}
	logger.FromGin(c).Info("agent assigned", "user_id", id, "agent_id", a.ID, "by", currentUser(c))
	c.JSON(http.StatusCreated, out)
}

type bulkAssignRequest struct {
	AgentIDs []string `json:"agent_external_ids" binding:"required"`
}

// AssignUserAgents assigns several agents at once; already assigned ones are skipped.
func (h *Handlers) AssignUserAgents(c *gin.Context) {
	id, ok := h.assignmentTarget(c)
	if !ok {
		return
	}
	var req bulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "agent_external_ids required")
		return
	}
	out, err := h.Store.AssignAgents(c.Request.Context(), id, req.AgentIDs, currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	logger.FromGin(c).Info("agents assigned", "user_id", id, "created", len(out), "by", currentUser(c))
	c.JSON(http.StatusCreated, out)
}

func (h *Handlers) UnassignUserAgent(c *gin.Context) {
	id, ok := pathUint(c, "id")
	if !ok {
		return
	}
	removed, err := h.Store.UnassignAgent(c.Request.Context(), id, c.Param("agent_id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !removed {
		notFound(c, "assignment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
