package httpapi

import (
	"net/http"

	"callrounded-manager/internal/knowledge"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) ListKnowledgeBases(c *gin.Context) {
	rows, err := h.Knowledge.List(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) GetKnowledgeBase(c *gin.Context) {
	kb, err := h.Knowledge.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if kb == nil {
		notFound(c, "knowledge base")
		return
	}
	c.JSON(http.StatusOK, kb)
}

func (h *Handlers) ListSources(c *gin.Context) {
	rows, ok, err := h.Knowledge.Sources(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		notFound(c, "knowledge base")
		return
	}
	c.JSON(http.StatusOK, rows)
}

type deleteSourcesRequest struct {
	SourceIDs []string `json:"source_ids"`
}

// DeleteSources answers with the deleted count and the new source_count.
func (h *Handlers) DeleteSources(c *gin.Context) {
	var req deleteSourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	res, err := h.Knowledge.DeleteSources(c.Request.Context(), currentUser(c), c.Param("id"), req.SourceIDs)
	if err != nil {
		fail(c, err)
		return
	}
	if res == nil {
		notFound(c, "knowledge base")
		return
	}
	c.JSON(http.StatusOK, res)
}

// SalonInfo reads the agent's prompt from the platform and extracts the business profile.
func (h *Handlers) SalonInfo(c *gin.Context) {
	if h.Platform == nil || !h.Platform.Enabled() {
		unavailable(c, "platform")
		return
	}
	ctx := c.Request.Context()
	a, err := h.Store.GetAgentForUser(ctx, currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if a == nil {
		notFound(c, "agent")
		return
	}
	remoteID := a.ExternalID
	if remoteID == "" {
		remoteID = a.ID
	}
	remote, err := h.Platform.GetAgent(ctx, remoteID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, knowledge.ParseSalonInfo(knowledge.AgentPrompt{
		Name:           remote.Name,
		BasePrompt:     remote.BasePrompt,
		InitialMessage: remote.InitialMessage,
		Language:       remote.Language,
	}))
}
