package httpapi

import (
	"net/http"
	"strconv"

	"callrounded-manager/internal/templates"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) templatesReady(c *gin.Context) bool {
	if h.Templates == nil {
		unavailable(c, "templates")
		return false
	}
	return true
}

// ListTemplates returns the tenant's templates and, unless include_presets=false, the presets.
func (h *Handlers) ListTemplates(c *gin.Context) {
	if !h.templatesReady(c) {
		return
	}
	include := true
	if v := c.Query("include_presets"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "include_presets must be true or false")
			return
		}
		include = b
	}
	rows, err := h.Templates.List(c.Request.Context(), currentUser(c), c.Query("category"), include)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) ListPresetTemplates(c *gin.Context) {
	if !h.templatesReady(c) {
		return
	}
	rows, err := h.Templates.Presets(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handlers) ListTemplateCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": templates.Categories()})
}

func (h *Handlers) GetTemplate(c *gin.Context) {
	if !h.templatesReady(c) {
		return
	}
	t, err := h.Templates.Get(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if t == nil {
		notFound(c, "template")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handlers) CreateTemplate(c *gin.Context) {
	if !h.templatesReady(c) {
		return
	}
	var in templates.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid json")
		return
	}
	uid := currentUser(c)
	t, err := h.Templates.Create(c.Request.Context(), uid, uid, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// UpdateTemplate edits a tenant template. Presets answer 404.
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	if !h.templatesReady(c) {
		return
	}
	var p templates.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid json")
		return
	}
	t, err := h.Templates.Update(c.Request.Context(), currentUser(c), c.Param("id"), p)
	if err != nil {
		fail(c, err)
		return
	}
	if t == nil {
		notFound(c, "template")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handlers) DeleteTemplate(c *gin.Context) {
	if !h.templatesReady(c) {
		return
	}
	ok, err := h.Templates.Delete(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !ok {
		notFound(c, "template")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) UseTemplate(c *gin.Context) {
	if !h.templatesReady(c) {
		return
	}
	t, err := h.Templates.Use(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if t == nil {
		notFound(c, "template")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handlers) SeedPresetTemplates(c *gin.Context) {
	if !h.templatesReady(c) {
		return
	}
	res, err := h.Templates.SeedPresets(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
