package httpapi

import (
	"context"

	"callrounded-manager/internal/alerts"
	"callrounded-manager/internal/auth"
	"callrounded-manager/internal/calendar"
	"callrounded-manager/internal/calls"
	"callrounded-manager/internal/knowledge"
	"callrounded-manager/internal/llm"
	"callrounded-manager/internal/notify"
	"callrounded-manager/internal/platform"
	"callrounded-manager/internal/rbac"
	"callrounded-manager/internal/reporting"
	"callrounded-manager/internal/store"
	"callrounded-manager/internal/templates"

	"github.com/gin-gonic/gin"
)

// Store is the part of the data layer the handlers use directly.
// *store.Store satisfies it.
type Store interface {
	GetAccessibleAgents(ctx context.Context, userID uint) ([]store.Agent, error)
	GetAccessibleAgent(ctx context.Context, userID uint, id string) (*store.Agent, error)
	GetAgentByID(ctx context.Context, id string) (*store.Agent, error)
	ListAgents(ctx context.Context) ([]store.Agent, error)
	GetAgentForUser(ctx context.Context, userID uint, id string) (*store.Agent, error)
	SetAgentStatus(ctx context.Context, userID uint, id string, status store.AgentStatus) (*store.Agent, error)
	ToggleAgentStatus(ctx context.Context, userID uint, id string) (*store.Agent, error)

	GetPhoneNumbersByUserID(ctx context.Context, userID uint) ([]store.PhoneNumber, error)
	GetPhoneNumberForUser(ctx context.Context, userID uint, id string) (*store.PhoneNumber, error)
	SetPhoneNumberStatus(ctx context.Context, userID uint, id string, status store.PhoneNumberStatus) (*store.PhoneNumber, error)
	TogglePhoneNumberStatus(ctx context.Context, userID uint, id string) (*store.PhoneNumber, error)

	ListUsers(ctx context.Context) ([]store.User, error)
	GetUserByID(ctx context.Context, id uint) (*store.User, error)
	CreateUser(ctx context.Context, in store.NewUser) (*store.User, error)
	UpdateUser(ctx context.Context, id uint, p store.UserPatch) (*store.User, error)
	DeleteUser(ctx context.Context, id uint) (bool, error)

	ListAgentAssignments(ctx context.Context, userID uint) ([]store.UserAgentAssignment, error)
	AssignAgent(ctx context.Context, userID uint, agentID string, by uint) (*store.UserAgentAssignment, error)
	AssignAgents(ctx context.Context, userID uint, agentIDs []string, by uint) ([]store.UserAgentAssignment, error)
	UnassignAgent(ctx context.Context, userID uint, agentID string) (bool, error)

	GetTenantSettings(ctx context.Context, userID uint) (*store.TenantSettings, error)
	SaveTenantSettings(ctx context.Context, t *store.TenantSettings) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Optional dependencies may be nil; their routes then answer 503.
type Handlers struct {
	Store    Store
	Sessions *auth.Sessions
	Cookies  auth.CookieOptions

	Calls     *calls.Service
	Knowledge *knowledge.Service
	Notify    *notify.Service
	Alerts    *alerts.Service
	Reporting *reporting.Service
	Calendar  *calendar.Service
	Templates *templates.Service

	Platform platform.Provider
	Syncer   *platform.Syncer
	Builder  *llm.AgentBuilder
}

// Mount registers every /api route on api. authMW must be auth.RequireAccessToken.
func (h *Handlers) Mount(api *gin.RouterGroup, authMW gin.HandlerFunc) {
	session := api.Group("/auth")
	{
		session.POST("/login", h.Login)
		session.POST("/logout", h.Logout)
		session.POST("/refresh", h.Refresh)
		session.GET("/me", authMW, h.Me)
	}

	p := api.Group("")
	p.Use(authMW, rbac.RequireAnyRole(rbac.RoleUser))
	{
		p.GET("/agents", h.ListAgents)
		p.GET("/agents/:id", h.GetAgent)
		p.PATCH("/agents/:id", h.PatchAgent)
		p.POST("/agents/:id/toggle", h.ToggleAgent)
		p.GET("/agents/:id/salon-info", h.SalonInfo)

		p.GET("/calls", h.ListCalls)
		p.GET("/calls/rich", h.ListRichCalls)
		p.GET("/calls/export", h.ExportCalls)
		p.GET("/calls/:id", h.GetCall)

		p.GET("/phone-numbers", h.ListPhoneNumbers)
		p.GET("/phone-numbers/:id", h.GetPhoneNumber)
		p.PATCH("/phone-numbers/:id", h.PatchPhoneNumber)
		p.POST("/phone-numbers/:id/toggle", h.TogglePhoneNumber)

		p.GET("/knowledge-bases", h.ListKnowledgeBases)
		p.GET("/knowledge-bases/:id", h.GetKnowledgeBase)
		p.GET("/knowledge-bases/:id/sources", h.ListSources)
		p.DELETE("/knowledge-bases/:id/sources", h.DeleteSources)

		p.GET("/dashboard/stats", h.DashboardStats)
		p.GET("/analytics/calls", h.CallAnalytics)
		p.GET("/analytics/trends", h.Trends)
		p.GET("/analytics/peak-hours", h.PeakHours)
		p.GET("/analytics/weekly-reports", h.WeeklyReports)

		p.GET("/reports/weekly/config", h.WeeklyReportConfig)
		p.PATCH("/reports/weekly/config", h.UpdateWeeklyReportConfig)
		p.POST("/reports/weekly/send-now", h.SendWeeklyReport)

		p.GET("/templates", h.ListTemplates)
		p.GET("/templates/presets", h.ListPresetTemplates)
		p.GET("/templates/categories", h.ListTemplateCategories)
		p.GET("/templates/:id", h.GetTemplate)
		p.POST("/templates", rbac.RequireAdmin(), h.CreateTemplate)
		p.PATCH("/templates/:id", rbac.RequireAdmin(), h.UpdateTemplate)
		p.DELETE("/templates/:id", rbac.RequireAdmin(), h.DeleteTemplate)
		p.POST("/templates/:id/use", h.UseTemplate)
		p.POST("/templates/seed-presets", rbac.RequireAdmin(), h.SeedPresetTemplates)

		p.GET("/alerts/notifications", h.Notifications)
		p.GET("/alerts/events", h.ListEvents)
		p.POST("/alerts/events/notified-all", h.MarkAllNotified)
		p.POST("/alerts/events/:id/notified", h.MarkNotified)
		p.GET("/alerts/rules", h.ListRules)
		p.POST("/alerts/rules", h.CreateRule)
		p.GET("/alerts/rules/presets", h.ListPresets)
		p.POST("/alerts/rules/from-preset/:preset", h.CreateRuleFromPreset)
		p.PATCH("/alerts/rules/:id", h.UpdateRule)
		p.DELETE("/alerts/rules/:id", h.DeleteRule)
		p.POST("/alerts/evaluate", h.EvaluateAlerts)
		p.GET("/alerts/stats", h.AlertStats)

		p.GET("/calendar/status", h.CalendarStatus)
		p.POST("/calendar/connect", h.CalendarConnect)
		p.POST("/calendar/disconnect", h.CalendarDisconnect)
		p.GET("/calendar/events", h.CalendarEvents)
		p.POST("/calendar/events", h.CreateCalendarEvent)
		p.DELETE("/calendar/events/:id", h.DeleteCalendarEvent)
		p.GET("/calendar/available-slots", h.AvailableSlots)
		p.GET("/calendar/stats", h.CalendarStats)
		p.POST("/calendar/sync", rbac.RequireAdmin(), h.CalendarSync)
	}

	admin := api.Group("/admin")
	admin.Use(authMW, rbac.RequireAdmin())
	{
		admin.GET("/users", h.ListUsers)
		admin.POST("/users", h.CreateUser)
		admin.GET("/users/:id", h.GetUser)
		admin.PATCH("/users/:id", h.UpdateUser)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.GET("/users/:id/agents", h.ListUserAgents)
		admin.POST("/users/:id/agents", h.AssignUserAgent)
		admin.POST("/users/:id/agents/bulk", h.AssignUserAgents)
		admin.DELETE("/users/:id/agents/:agent_id", h.UnassignUserAgent)
		admin.GET("/tenant", h.GetTenant)
		admin.PATCH("/tenant", h.UpdateTenant)
		admin.GET("/agents", h.ListAllAgents)
		admin.POST("/sync", h.Sync)
		admin.POST("/llm/chat", h.LLMChat)
		admin.GET("/llm/voices", h.LLMVoices)
	}
}
