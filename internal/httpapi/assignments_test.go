package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callrounded-manager/internal/calls"
	"callrounded-manager/internal/store"
)

func TestAgentAssignments(t *testing.T) {
	h := newHarness(t)
	_, admin := h.user("admin@example.com", store.RoleAdmin)
	ownerID, _ := h.user("owner@example.com", store.RoleUser)
	viewerID, viewer := h.user("viewer@example.com", store.RoleUser)
	ctx := context.Background()
	require.NoError(t, h.store.UpsertAgent(ctx, store.Agent{ID: "a1", UserID: ownerID, Name: "Front Desk", Status: store.AgentActive}))
	require.NoError(t, h.store.UpsertAgent(ctx, store.Agent{ID: "a2", UserID: ownerID, Name: "Night Line", Status: store.AgentActive}))
	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, h.store.UpsertCall(ctx, store.Call{ID: "c1", UserID: ownerID, AgentID: "a1", Status: store.CallCompleted, StartedAt: &at}))

	base := "/api/admin/users/" + jsonNumber(viewerID) + "/agents"

	w := h.do(http.MethodGet, "/api/agents", viewer, nil)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/calls/c1", viewer, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, base, viewer, gin.H{"agent_external_id": "a1"}).Code)

	w = h.do(http.MethodPost, base, admin, gin.H{"agent_external_id": "a1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "a1", decode[store.UserAgentAssignment](t, w).AgentID)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, base, admin, gin.H{"agent_external_id": "a1"}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, base, admin, gin.H{"agent_external_id": "zz"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, base, admin, gin.H{}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/admin/users/999/agents", admin, nil).Code)

	w = h.do(http.MethodGet, "/api/agents", viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	agents := decode[[]store.Agent](t, w)
	require.Len(t, agents, 1)
	assert.Equal(t, "a1", agents[0].ID)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/agents/a1", viewer, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/calls/c1", viewer, nil).Code)
	w = h.do(http.MethodGet, "/api/calls/rich", viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[calls.RichList](t, w).TotalItems)
	// status changes stay with the owner
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/agents/a1/toggle", viewer, nil).Code)

	w = h.do(http.MethodPost, base+"/bulk", admin, gin.H{"agent_external_ids": []string{"a1", "a2"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[[]store.UserAgentAssignment](t, w)
	require.Len(t, created, 1)
	assert.Equal(t, "a2", created[0].AgentID)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, base+"/bulk", admin, gin.H{"agent_external_ids": []string{"zz"}}).Code)

	w = h.do(http.MethodGet, base, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.UserAgentAssignment](t, w), 2)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, base+"/a1", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, base+"/a1", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/calls/c1", viewer, nil).Code)
}
