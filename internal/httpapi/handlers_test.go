package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callrounded-manager/internal/alerts"
	"callrounded-manager/internal/auth"
	"callrounded-manager/internal/calendar"
	"callrounded-manager/internal/calls"
	"callrounded-manager/internal/config"
	"callrounded-manager/internal/knowledge"
	"callrounded-manager/internal/notify"
	"callrounded-manager/internal/reporting"
	"callrounded-manager/internal/store"
	"callrounded-manager/internal/templates"
)

type harness struct {
	t      *testing.T
	router *gin.Engine
	store  *store.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := store.Open(ctx, store.OpenConfig{URL: "sqlite::memory:"})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx, db))
	t.Cleanup(func() { _ = store.Close(db) })
	st := store.New(db)

	tokens, err := auth.NewManager(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTL: 15 * time.Minute, RefreshTokenTTL: time.Hour})
	require.NoError(t, err)
	sessions := auth.NewSessions(tokens, st, nil)
	events := notify.NewService(st)

	h := &Handlers{
		Store:     st,
		Sessions:  sessions,
		Calls:     calls.NewService(st),
		Knowledge: knowledge.NewService(st),
		Notify:    events,
		Alerts:    alerts.NewService(st, events, nil),
		Reporting: reporting.NewService(st, reporting.WithWeeklyStore(st)),
		Calendar:  calendar.NewService(st, time.UTC, nil),
		Templates: templates.NewService(st),
	}
	r := gin.New()
	h.Mount(r.Group("/api"), auth.RequireAccessToken(sessions))
	return &harness{t: t, router: r, store: st}
}

// user creates an account and returns its id and a logged-in access cookie.
func (h *harness) user(email string, role store.UserRole) (uint, *http.Cookie) {
	h.t.Helper()
	hash, err := auth.HashPassword("password1")
	require.NoError(h.t, err)
	u, err := h.store.CreateUser(context.Background(), store.NewUser{Email: email, Role: role, PasswordHash: hash})
	require.NoError(h.t, err)

	w := h.do(http.MethodPost, "/api/auth/login", nil, gin.H{"email": email, "password": "password1"})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.AccessCookie {
			return u.ID, c
		}
	}
	h.t.Fatalf("no access cookie")
	return 0, nil
}

func (h *harness) do(method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/api/agents", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/auth/login", nil, gin.H{"email": "x@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestAgentToggleScenario(t *testing.T) {
	h := newHarness(t)
	uid, cookie := h.user("owner@example.com", store.RoleUser)
	ctx := context.Background()
	require.NoError(t, h.store.UpsertAgent(ctx, store.Agent{ID: "a1", UserID: uid, Name: "Front Desk", Status: store.AgentInactive, ExternalID: "ext-1"}))

	w := h.do(http.MethodPost, "/api/agents/a1/toggle", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.AgentActive, decode[store.Agent](t, w).Status)

	w = h.do(http.MethodGet, "/api/agents", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	agents := decode[[]store.Agent](t, w)
	require.Len(t, agents, 1)
	assert.Equal(t, "a1", agents[0].ID)
	assert.Equal(t, store.AgentActive, agents[0].Status)

	w = h.do(http.MethodPatch, "/api/agents/a1", cookie, gin.H{"status": "paused"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.AgentPaused, decode[store.Agent](t, w).Status)

	w = h.do(http.MethodPatch, "/api/agents/a1", cookie, gin.H{"status": "sleeping"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantIsolation(t *testing.T) {
	h := newHarness(t)
	owner, _ := h.user("one@example.com", store.RoleUser)
	_, other := h.user("two@example.com", store.RoleUser)
	ctx := context.Background()
	require.NoError(t, h.store.UpsertAgent(ctx, store.Agent{ID: "a1", UserID: owner, Name: "Front Desk"}))
	require.NoError(t, h.store.UpsertPhoneNumber(ctx, store.PhoneNumber{ID: "p1", UserID: owner, Number: "+33100000000", Status: store.PhoneNumberActive}))

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/agents/a1", other, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/agents/a1/toggle", other, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPatch, "/api/phone-numbers/p1", other, gin.H{"status": "inactive"}).Code)

	w := h.do(http.MethodGet, "/api/phone-numbers", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCallsListingAndExport(t *testing.T) {
	h := newHarness(t)
	uid, cookie := h.user("calls@example.com", store.RoleUser)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	for i, st := range []store.CallStatus{store.CallCompleted, store.CallMissed, store.CallCompleted} {
		at := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, h.store.UpsertCall(ctx, store.Call{
			ID: "c" + string(rune('1'+i)), UserID: uid, AgentID: "a1", Status: st, Duration: 30, StartedAt: &at,
		}))
	}

	w := h.do(http.MethodGet, "/api/calls?limit=2&page=2", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[calls.ListResponse[calls.Summary]](t, w)
	assert.EqualValues(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Data, 1)

	w = h.do(http.MethodGet, "/api/calls?status=missed", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[calls.ListResponse[calls.Summary]](t, w).TotalItems)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/calls?status=lost", cookie, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/calls?limit=0", cookie, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/calls/nope", cookie, nil).Code)

	w = h.do(http.MethodGet, "/api/calls/c2", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.CallMissed, decode[calls.Rich](t, w).Status)

	w = h.do(http.MethodGet, "/api/calls/export", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "c3")
}

func TestDeleteKnowledgeBaseSources(t *testing.T) {
	h := newHarness(t)
	uid, cookie := h.user("kb@example.com", store.RoleUser)
	ctx := context.Background()
	require.NoError(t, h.store.UpsertKnowledgeBase(ctx, store.KnowledgeBase{ID: "kb1", UserID: uid, Name: "FAQ", SourceCount: 3}))
	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, h.store.UpsertKnowledgeBaseSource(ctx, store.KnowledgeBaseSource{ID: id, KnowledgeBaseID: "kb1", Type: store.SourceText, Status: store.SourceReady}))
	}

	w := h.do(http.MethodDelete, "/api/knowledge-bases/kb1/sources", cookie, gin.H{"source_ids": []string{"s1", "s2", "s2", "missing"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[store.DeleteSourcesResult](t, w)
	assert.EqualValues(t, 2, res.Deleted)
	assert.Equal(t, 1, res.SourceCount)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodDelete, "/api/knowledge-bases/kb1/sources", cookie, gin.H{"source_ids": []string{}}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/knowledge-bases/kb9/sources", cookie, gin.H{"source_ids": []string{"s3"}}).Code)

	w = h.do(http.MethodGet, "/api/knowledge-bases/kb1/sources", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.KnowledgeBaseSource](t, w), 1)
}

func TestNotificationsFlow(t *testing.T) {
	h := newHarness(t)
	uid, cookie := h.user("ev@example.com", store.RoleUser)
	ctx := context.Background()
	ev := &store.Event{UserID: uid, Type: store.EventSystemAlert, Title: "Heads up"}
	require.NoError(t, h.store.CreateEvent(ctx, ev))

	w := h.do(http.MethodGet, "/api/alerts/notifications", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.Event](t, w), 1)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/alerts/events?type=bogus", cookie, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/api/alerts/events/abc/notified", cookie, nil).Code)

	w = h.do(http.MethodPost, "/api/alerts/events/"+jsonNumber(ev.ID)+"/notified", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodGet, "/api/alerts/notifications", cookie, nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = h.do(http.MethodPost, "/api/alerts/rules/from-preset/no_activity", cookie, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/alerts/rules/from-preset/unknown", cookie, nil).Code)

	w = h.do(http.MethodPost, "/api/alerts/evaluate", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"triggered":1`)
}

func TestDashboardAndCalendar(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.user("dash@example.com", store.RoleUser)

	w := h.do(http.MethodGet, "/api/dashboard/stats", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[reporting.DashboardStats](t, w).TotalCalls)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/dashboard/stats?from_date=yesterday", cookie, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/analytics/calls?period=year", cookie, nil).Code)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/calendar/events", cookie, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/calendar/available-slots?date=2026-10-20&duration_minutes=5", cookie, nil).Code)

	w = h.do(http.MethodGet, "/api/calendar/available-slots?date=2026-10-20", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[calendar.Slots](t, w).Slots, 18)
}

func TestAdminUserManagement(t *testing.T) {
	h := newHarness(t)
	adminID, admin := h.user("admin@example.com", store.RoleAdmin)
	userID, user := h.user("user@example.com", store.RoleUser)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/admin/users", user, nil).Code)

	w := h.do(http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.User](t, w), 2)
	assert.NotContains(t, w.Body.String(), "password_hash")

	w = h.do(http.MethodPost, "/api/admin/users", admin, gin.H{"email": "user@example.com", "password": "password2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = h.do(http.MethodPost, "/api/admin/users", admin, gin.H{"email": "new@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPost, "/api/admin/users", admin, gin.H{"email": "new@example.com", "password": "password2", "role": "admin"})
	require.Equal(t, http.StatusCreated, w.Code)

	self := "/api/admin/users/" + jsonNumber(adminID)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPatch, self, admin, gin.H{"role": "user"}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodDelete, self, admin, nil).Code)

	other := "/api/admin/users/" + jsonNumber(userID)
	w = h.do(http.MethodPatch, other, admin, gin.H{"role": "admin", "name": "Promoted"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.RoleAdmin, decode[store.User](t, w).Role)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, other, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, other, admin, nil).Code)
	// the deleted user's session no longer works
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/auth/me", user, nil).Code)

	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodPost, "/api/admin/sync", admin, nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodPost, "/api/admin/llm/chat", admin, gin.H{"messages": []gin.H{{"role": "user", "content": "hi"}}}).Code)
}

func TestRefreshAndLogout(t *testing.T) {
	h := newHarness(t)
	hash, err := auth.HashPassword("password1")
	require.NoError(t, err)
	_, err = h.store.CreateUser(context.Background(), store.NewUser{Email: "r@example.com", PasswordHash: hash})
	require.NoError(t, err)

	w := h.do(http.MethodPost, "/api/auth/login", nil, gin.H{"email": "r@example.com", "password": "password1"})
	require.Equal(t, http.StatusOK, w.Code)
	var refresh *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.RefreshCookie {
			refresh = c
		}
	}
	require.NotNil(t, refresh)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/auth/refresh", nil, nil).Code)

	w = h.do(http.MethodPost, "/api/auth/refresh", refresh, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var access *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.AccessCookie {
			access = c
		}
	}
	require.NotNil(t, access)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/auth/me", access, nil).Code)

	w = h.do(http.MethodPost, "/api/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
