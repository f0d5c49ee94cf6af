package httpapi

import (
	"net/http"
	"strings"
	"time"

	"callrounded-manager/internal/store"

	"github.com/gin-gonic/gin"
)

const defaultPlan = "starter"

// tenantView is the account seen from the admin settings page. A tenant is
// the admin's own account.
type tenantView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Plan        string    `json:"plan"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handlers) loadTenant(c *gin.Context) (*store.User, *store.TenantSettings, bool) {
	ctx := c.Request.Context()
	u, err := h.Store.GetUserByID(ctx, currentUser(c))
	if err != nil {
		fail(c, err)
		return nil, nil, false
	}
	if u == nil {
		notFound(c, "tenant")
		return nil, nil, false
	}
	ts, err := h.Store.GetTenantSettings(ctx, u.ID)
	if err != nil {
		fail(c, err)
		return nil, nil, false
	}
	if ts == nil {
		ts = &store.TenantSettings{UserID: u.ID, Plan: defaultPlan}
	}
	return u, ts, true
}

func newTenantView(u *store.User, ts *store.TenantSettings) tenantView {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	display := ts.DisplayName
	if display == "" {
		display = name
	}
	return tenantView{ID: u.ID, Name: name, DisplayName: display, Plan: ts.Plan, CreatedAt: u.CreatedAt}
}

func (h *Handlers) GetTenant(c *gin.Context) {
	u, ts, ok := h.loadTenant(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newTenantView(u, ts))
}

type tenantPatch struct {
	DisplayName *string `json:"display_name"`
}

func (h *Handlers) UpdateTenant(c *gin.Context) {
	var req tenantPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	u, ts, ok := h.loadTenant(c)
	if !ok {
		return
	}
	if req.DisplayName != nil {
		ts.DisplayName = strings.TrimSpace(*req.DisplayName)
		if err := h.Store.SaveTenantSettings(c.Request.Context(), ts); err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, newTenantView(u, ts))
}
