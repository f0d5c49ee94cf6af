package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callrounded-manager/internal/calls"
	"callrounded-manager/internal/store"
)

func TestRichCallsEnvelope(t *testing.T) {
	h := newHarness(t)
	uid, cookie := h.user("rich@example.com", store.RoleUser)
	ctx := context.Background()
	require.NoError(t, h.store.UpsertAgent(ctx, store.Agent{ID: "a1", UserID: uid, Name: "Front Desk", Status: store.AgentActive}))
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2", "c3"} {
		at := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, h.store.UpsertCall(ctx, store.Call{ID: id, UserID: uid, AgentID: "a1", Status: store.CallCompleted, Duration: 20, StartedAt: &at}))
	}

	w := h.do(http.MethodGet, "/api/calls/rich?limit=2", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	raw := decode[map[string]json.RawMessage](t, w)
	for _, key := range []string{"calls", "total_items", "current_page", "total_pages"} {
		assert.Contains(t, raw, key)
	}
	out := decode[calls.RichList](t, w)
	require.Len(t, out.Calls, 2)
	assert.Equal(t, "c3", out.Calls[0].ID)
	assert.Equal(t, "Front Desk", out.Calls[0].AgentName)
	assert.EqualValues(t, 3, out.TotalItems)
	assert.Equal(t, 1, out.CurrentPage)
	assert.Equal(t, 2, out.TotalPages)

	w = h.do(http.MethodGet, "/api/calls/rich?limit=2&page=2", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	out = decode[calls.RichList](t, w)
	require.Len(t, out.Calls, 1)
	assert.Equal(t, "c1", out.Calls[0].ID)

	w = h.do(http.MethodGet, "/api/calls/rich", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[calls.RichList](t, w).Calls, 3)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/calls/rich?limit=501", cookie, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/calls/rich?page=0", cookie, nil).Code)
}
