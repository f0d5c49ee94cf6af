package reporting

import "time"

// TimeRange is half-open: From inclusive, To exclusive.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

// DashboardRequest selects the calls counted on the dashboard.
// Dates are YYYY-MM-DD in UTC; both are optional.
type DashboardRequest struct {
	UserID   uint   `json:"user_id"`
	FromDate string `json:"from_date,omitempty"`
	ToDate   string `json:"to_date,omitempty"`
}

type DashboardStats struct {
	TotalAgents     int     `json:"total_agents"`
	ActiveAgents    int     `json:"active_agents"`
	TotalCalls      int     `json:"total_calls"`
	TotalCallsToday int     `json:"total_calls_today"`
	CompletedCalls  int     `json:"completed_calls"`
	MissedCalls     int     `json:"missed_calls"`
	FailedCalls     int     `json:"failed_calls"`
	AvgDuration     float64 `json:"avg_duration"`
	TotalCost       float64 `json:"total_cost"`
	ResponseRate    float64 `json:"response_rate"`
}

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	// PeriodLast7Days is used when no period is requested.
	PeriodLast7Days = "last_7_days"
	PeriodCustom    = "custom"
)

type AnalyticsRequest struct {
	UserID   uint   `json:"user_id"`
	Period   string `json:"period,omitempty"`
	FromDate string `json:"from_date,omitempty"`
	ToDate   string `json:"to_date,omitempty"`
}

type DailyStats struct {
	Date           string  `json:"date"`
	TotalCalls     int     `json:"total_calls"`
	CompletedCalls int     `json:"completed_calls"`
	MissedCalls    int     `json:"missed_calls"`
	AvgDuration    float64 `json:"avg_duration"`
	TotalCost      float64 `json:"total_cost"`
}

type HourlyBucket struct {
	Hour      int `json:"hour"`
	CallCount int `json:"call_count"`
}

type AgentPerformance struct {
	AgentID        string  `json:"agent_id"`
	AgentName      string  `json:"agent_name"`
	TotalCalls     int     `json:"total_calls"`
	CompletedCalls int     `json:"completed_calls"`
	CompletionRate float64 `json:"completion_rate"`
	AvgDuration    float64 `json:"avg_duration"`
}

type Analytics struct {
	Period         string    `json:"period"`
	Range          TimeRange `json:"range"`
	TotalCalls     int       `json:"total_calls"`
	CompletedCalls int       `json:"completed_calls"`
	MissedCalls    int       `json:"missed_calls"`
	FailedCalls    int       `json:"failed_calls"`
	CompletionRate float64   `json:"completion_rate"`
	AvgDuration    float64   `json:"avg_duration"`
	TotalCost      float64   `json:"total_cost"`

	// Nil when the previous period had no calls.
	CallsChangePct       *float64 `json:"calls_change_pct"`
	CompletionRateChange *float64 `json:"completion_rate_change"`

	DailyStats         []DailyStats       `json:"daily_stats"`
	HourlyDistribution []HourlyBucket     `json:"hourly_distribution"`
	AgentPerformance   []AgentPerformance `json:"agent_performance"`
}

type TrendPoint struct {
	Date      string  `json:"date"`
	Calls     int     `json:"calls"`
	Completed int     `json:"completed"`
	Cost      float64 `json:"cost"`
}

type Trends struct {
	Days int          `json:"days"`
	Data []TrendPoint `json:"data"`
}

type WeekdayBucket struct {
	Day   string `json:"day"`
	Calls int    `json:"calls"`
}

type PeakHours struct {
	PeakHour           int             `json:"peak_hour"`
	PeakHourCalls      int             `json:"peak_hour_calls"`
	PeakDay            string          `json:"peak_day"`
	PeakDayCalls       int             `json:"peak_day_calls"`
	HourlyDistribution []HourlyBucket  `json:"hourly_distribution"`
	DailyDistribution  []WeekdayBucket `json:"daily_distribution"`
}
