package httpapi

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callrounded-manager/internal/store"
	"callrounded-manager/internal/templates"
)

func TestTemplateRoutes(t *testing.T) {
	h := newHarness(t)
	_, admin := h.user("admin@example.com", store.RoleAdmin)
	_, user := h.user("user@example.com", store.RoleUser)
	presets := len(templates.Presets())

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/templates/seed-presets", user, nil).Code)
	w := h.do(http.MethodPost, "/api/templates/seed-presets", admin, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, templates.SeedResult{Created: presets, TotalPresets: presets}, decode[templates.SeedResult](t, w))

	w = h.do(http.MethodGet, "/api/templates/categories", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]templates.Category](t, w)["categories"], 6)

	w = h.do(http.MethodGet, "/api/templates/presets", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.AgentTemplate](t, w), presets)

	body := gin.H{"name": "Garage", "category": "services", "greeting": "Bonjour", "system_prompt": "Tu réponds pour le garage."}
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/templates", user, body).Code)
	w = h.do(http.MethodPost, "/api/templates", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	own := decode[store.AgentTemplate](t, w)
	assert.Equal(t, "fr-FR", own.Language)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/api/templates", admin, body).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/templates", admin, gin.H{"name": "X", "category": "space", "greeting": "a", "system_prompt": "b"}).Code)

	w = h.do(http.MethodGet, "/api/templates?include_presets=false", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.AgentTemplate](t, w), 1)
	w = h.do(http.MethodGet, "/api/templates", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]store.AgentTemplate](t, w)
	require.Len(t, list, presets)
	preset := list[0]
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/templates?category=space", user, nil).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/templates/"+own.ID, user, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/templates/"+preset.ID, user, nil).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPatch, "/api/templates/"+preset.ID, admin, gin.H{"name": "Mine now"}).Code)
	w = h.do(http.MethodPatch, "/api/templates/"+own.ID, admin, gin.H{"voice": "lucas"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "lucas", decode[store.AgentTemplate](t, w).Voice)

	w = h.do(http.MethodPost, "/api/templates/"+preset.ID+"/use", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[store.AgentTemplate](t, w).UsageCount)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/templates/"+own.ID+"/use", user, nil).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/templates/"+preset.ID, admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/templates/"+own.ID, admin, nil).Code)
}
