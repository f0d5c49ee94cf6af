package store

import (
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool { return r == RoleUser || r == RoleAdmin }

type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
	AgentPaused   AgentStatus = "paused"
)

func (s AgentStatus) Valid() bool {
	switch s {
	case AgentActive, AgentInactive, AgentPaused:
		return true
	default:
		return false
	}
}

// Toggled flips active to inactive; any other state becomes active.
func (s AgentStatus) Toggled() AgentStatus {
	if s == AgentActive {
		return AgentInactive
	}
	return AgentActive
}

type CallStatus string

const (
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
	CallMissed    CallStatus = "missed"
	CallOngoing   CallStatus = "ongoing"
)

func (s CallStatus) Valid() bool {
	switch s {
	case CallCompleted, CallFailed, CallMissed, CallOngoing:
		return true
	default:
		return false
	}
}

type PhoneNumberStatus string

const (
	PhoneNumberActive   PhoneNumberStatus = "active"
	PhoneNumberInactive PhoneNumberStatus = "inactive"
)

func (s PhoneNumberStatus) Valid() bool { return s == PhoneNumberActive || s == PhoneNumberInactive }

func (s PhoneNumberStatus) Toggled() PhoneNumberStatus {
	if s == PhoneNumberActive {
		return PhoneNumberInactive
	}
	return PhoneNumberActive
}

type SourceType string

const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
	SourceText SourceType = "text"
)

type SourceStatus string

const (
	SourceIngesting SourceStatus = "ingesting"
	SourceReady     SourceStatus = "ready"
	SourceFailed    SourceStatus = "failed"
)

type EventType string

const (
	EventCallMissed    EventType = "call_missed"
	EventAgentError    EventType = "agent_error"
	EventAgentOffline  EventType = "agent_offline"
	EventCallCompleted EventType = "call_completed"
	EventSystemAlert   EventType = "system_alert"
)

func (t EventType) Valid() bool {
	switch t {
	case EventCallMissed, EventAgentError, EventAgentOffline, EventCallCompleted, EventSystemAlert:
		return true
	default:
		return false
	}
}

// User is a dashboard account. OpenID is the external identity; email/password
// accounts get a generated "local:" OpenID.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OpenID       string    `gorm:"size:64;uniqueIndex;not null" json:"open_id" validate:"required,max=64"`
	Name         string    `gorm:"type:text" json:"name"`
	Email        string    `gorm:"size:320;index" json:"email" validate:"omitempty,email,max=320"`
	LoginMethod  string    `gorm:"size:64" json:"login_method"`
	Role         UserRole  `gorm:"size:16;not null" json:"role" validate:"oneof=user admin"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastSignedIn time.Time `json:"last_signed_in"`
}

type Agent struct {
	ID          string      `gorm:"primaryKey;size:64" json:"id" validate:"required,max=64"`
	UserID      uint        `gorm:"not null;index" json:"user_id" validate:"required"`
	Name        string      `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Status      AgentStatus `gorm:"size:16;not null" json:"status" validate:"oneof=active inactive paused"`
	ExternalID  string      `gorm:"size:255" json:"external_id" validate:"max=255"`
	Description string      `gorm:"type:text" json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// UserAgentAssignment gives a user read access to an agent owned by another
// account: the agent, its calls and the statistics built from them.
type UserAgentAssignment struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_assignment_user_agent" json:"user_id" validate:"required"`
	AgentID    string    `gorm:"size:64;not null;uniqueIndex:idx_assignment_user_agent" json:"agent_external_id" validate:"required,max=64"`
	AssignedBy uint      `gorm:"not null" json:"assigned_by"`
	AssignedAt time.Time `gorm:"autoCreateTime" json:"assigned_at"`
}

type Call struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id" validate:"required,max=64"`
	UserID         uint       `gorm:"not null;index" json:"user_id" validate:"required"`
	AgentID        string     `gorm:"size:64;not null;index" json:"agent_id" validate:"required,max=64"`
	ExternalCallID string     `gorm:"size:255" json:"external_call_id" validate:"max=255"`
	CallerNumber   string     `gorm:"size:20" json:"caller_number" validate:"max=20"`
	Duration       int        `gorm:"not null" json:"duration" validate:"gte=0"`
	Status         CallStatus `gorm:"size:16;not null;index" json:"status" validate:"oneof=completed failed missed ongoing"`
	Transcription  string     `gorm:"type:text" json:"transcription,omitempty"`
	RecordingURL   string     `gorm:"type:text" json:"recording_url,omitempty"`
	Summary        string     `gorm:"type:text" json:"summary,omitempty"`
	Cost           float64    `gorm:"not null" json:"cost" validate:"gte=0"`
	StartedAt      *time.Time `gorm:"index" json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OccurredAt is the call start, falling back to the row creation time.
func (c Call) OccurredAt() time.Time {
	if c.StartedAt != nil {
		return *c.StartedAt
	}
	return c.CreatedAt
}

type PhoneNumber struct {
	ID                    string            `gorm:"primaryKey;size:64" json:"id" validate:"required,max=64"`
	UserID                uint              `gorm:"not null;index" json:"user_id" validate:"required"`
	AgentID               *string           `gorm:"size:64" json:"agent_id"`
	ExternalPhoneNumberID string            `gorm:"size:255" json:"external_phone_number_id" validate:"max=255"`
	Number                string            `gorm:"size:20;not null" json:"number" validate:"required,max=20"`
	Status                PhoneNumberStatus `gorm:"size:16;not null" json:"status" validate:"oneof=active inactive"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

type KnowledgeBase struct {
	ID                      string    `gorm:"primaryKey;size:64" json:"id" validate:"required,max=64"`
	UserID                  uint      `gorm:"not null;index" json:"user_id" validate:"required"`
	AgentID                 *string   `gorm:"size:64" json:"agent_id"`
	ExternalKnowledgeBaseID string    `gorm:"size:255" json:"external_knowledge_base_id" validate:"max=255"`
	Name                    string    `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Description             string    `gorm:"type:text" json:"description"`
	SourceCount             int       `gorm:"not null" json:"source_count" validate:"gte=0"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

type KnowledgeBaseSource struct {
	ID               string       `gorm:"primaryKey;size:64" json:"id" validate:"required,max=64"`
	KnowledgeBaseID  string       `gorm:"size:64;not null;index" json:"knowledge_base_id" validate:"required,max=64"`
	ExternalSourceID string       `gorm:"size:255" json:"external_source_id" validate:"max=255"`
	FileName         string       `gorm:"size:255" json:"file_name" validate:"max=255"`
	FileURL          string       `gorm:"type:text" json:"file_url"`
	Type             SourceType   `gorm:"size:16;not null" json:"type" validate:"oneof=file url text"`
	Status           SourceStatus `gorm:"size:16;not null" json:"status" validate:"oneof=ingesting ready failed"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Event is a per-tenant notification. IsNotified is 0 until the dashboard has shown it.
type Event struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id" validate:"required"`
	Type           EventType `gorm:"size:32;not null" json:"type" validate:"oneof=call_missed agent_error agent_offline call_completed system_alert"`
	Title          string    `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	Message        string    `gorm:"type:text" json:"message"`
	RelatedAgentID *string   `gorm:"size:64" json:"related_agent_id"`
	RelatedCallID  *string   `gorm:"size:64" json:"related_call_id"`
	IsNotified     int       `gorm:"not null;index" json:"is_notified" validate:"oneof=0 1"`
	CreatedAt      time.Time `json:"created_at"`
}

type AlertRuleType string

const (
	RuleMissedCalls   AlertRuleType = "missed_calls"
	RuleLowCompletion AlertRuleType = "low_completion"
	RuleHighCost      AlertRuleType = "high_cost"
	RuleNoActivity    AlertRuleType = "no_activity"
)

func (t AlertRuleType) Valid() bool {
	switch t {
	case RuleMissedCalls, RuleLowCompletion, RuleHighCost, RuleNoActivity:
		return true
	default:
		return false
	}
}

type AlertRule struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	UserID          uint           `gorm:"not null;index" json:"user_id" validate:"required"`
	Name            string         `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Description     string         `gorm:"type:text" json:"description"`
	RuleType        AlertRuleType  `gorm:"size:32;not null" json:"rule_type" validate:"oneof=missed_calls low_completion high_cost no_activity"`
	Conditions      datatypes.JSON `json:"conditions"`
	IsActive        bool           `gorm:"not null" json:"is_active"`
	CooldownMinutes int            `gorm:"not null" json:"cooldown_minutes" validate:"gte=0"`
	LastTriggered   *time.Time     `json:"last_triggered"`
	TriggerCount    int            `gorm:"not null" json:"trigger_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CalendarIntegration is the per-tenant calendar connection. One row per user.
type CalendarIntegration struct {
	UserID       uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Email        string     `gorm:"size:320" json:"email" validate:"omitempty,email"`
	CalendarID   string     `gorm:"size:255" json:"calendar_id"`
	Connected    bool       `gorm:"not null" json:"connected"`
	LastSync     *time.Time `json:"last_sync"`
	EventsSynced int        `gorm:"not null" json:"events_synced"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CalendarEvent is an appointment booked for a tenant, usually by an agent during a call.
type CalendarEvent struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id" validate:"required"`
	Title         string    `gorm:"size:255;not null" json:"title" validate:"required,max=255"`
	Description   string    `gorm:"type:text" json:"description"`
	CustomerName  string    `gorm:"size:255" json:"customer_name"`
	CustomerPhone string    `gorm:"size:20" json:"customer_phone" validate:"max=20"`
	CallID        *string   `gorm:"size:64" json:"call_id"`
	StartAt       time.Time `gorm:"not null;index" json:"start_at" validate:"required"`
	EndAt         time.Time `gorm:"not null" json:"end_at" validate:"required,gtfield=StartAt"`
	CreatedAt     time.Time `json:"created_at"`
}

// AgentTemplate is a reusable agent configuration. Presets have no owner and
// are visible to every tenant.
type AgentTemplate struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       *uint     `gorm:"index" json:"user_id"`
	Name         string    `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Description  string    `gorm:"type:text" json:"description"`
	Category     string    `gorm:"size:32;not null;index" json:"category" validate:"required,max=32"`
	Icon         string    `gorm:"size:16" json:"icon" validate:"max=16"`
	Greeting     string    `gorm:"type:text" json:"greeting"`
	SystemPrompt string    `gorm:"type:text" json:"system_prompt"`
	Voice        string    `gorm:"size:64;not null" json:"voice" validate:"required,max=64"`
	Language     string    `gorm:"size:16;not null" json:"language" validate:"required,max=16"`
	IsPreset     bool      `gorm:"not null;index" json:"is_preset"`
	UsageCount   int       `gorm:"not null" json:"usage_count"`
	CreatedBy    uint      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WeeklyReportConfig holds the tenant's weekly e-mail report settings. One row per user.
type WeeklyReportConfig struct {
	UserID                 uint                        `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Enabled                bool                        `gorm:"not null" json:"enabled"`
	Recipients             datatypes.JSONSlice[string] `json:"recipients" validate:"dive,email"`
	ScheduleDay            string                      `gorm:"size:16;not null" json:"-" validate:"oneof=monday tuesday wednesday thursday friday saturday sunday"`
	ScheduleTime           string                      `gorm:"size:5;not null" json:"-" validate:"datetime=15:04"`
	IncludeCallSummary     bool                        `gorm:"not null" json:"-"`
	IncludeAnalytics       bool                        `gorm:"not null" json:"-"`
	IncludeAlerts          bool                        `gorm:"not null" json:"-"`
	IncludeRecommendations bool                        `gorm:"not null" json:"-"`
	LastSentAt             *time.Time                  `json:"-"`
	CreatedAt              time.Time                   `json:"-"`
	UpdatedAt              time.Time                   `json:"-"`
}

// WeeklyReport is one generated weekly summary. Weeks run Monday to Monday.
type WeeklyReport struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	UserID         uint       `gorm:"not null;uniqueIndex:idx_weekly_report_week" json:"-" validate:"required"`
	WeekStart      time.Time  `gorm:"not null;uniqueIndex:idx_weekly_report_week" json:"week_start"`
	WeekEnd        time.Time  `gorm:"not null" json:"week_end" validate:"gtfield=WeekStart"`
	TotalCalls     int        `gorm:"not null" json:"total_calls"`
	CompletedCalls int        `gorm:"not null" json:"completed_calls"`
	MissedCalls    int        `gorm:"not null" json:"missed_calls"`
	AvgDuration    float64    `gorm:"not null" json:"avg_duration"`
	TotalCost      float64    `gorm:"not null" json:"total_cost"`
	CallsChangePct *float64   `json:"calls_change_pct"`
	GeneratedAt    time.Time  `gorm:"not null" json:"generated_at"`
	SentAt         *time.Time `json:"sent_at"`
}

// TenantSettings carries the account-level presentation settings of a tenant.
type TenantSettings struct {
	UserID      uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	DisplayName string    `gorm:"size:255" json:"display_name" validate:"max=255"`
	Plan        string    `gorm:"size:32;not null" json:"plan" validate:"required,max=32"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AllModels lists every table managed by Migrate.
func AllModels() []any {
	return []any{
		&User{},
		&Agent{},
		&UserAgentAssignment{},
		&Call{},
		&PhoneNumber{},
		&KnowledgeBase{},
		&KnowledgeBaseSource{},
		&Event{},
		&AlertRule{},
		&CalendarIntegration{},
		&CalendarEvent{},
		&AgentTemplate{},
		&WeeklyReportConfig{},
		&WeeklyReport{},
		&TenantSettings{},
	}
}
