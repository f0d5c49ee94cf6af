package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"callrounded-manager/internal/store"
	"callrounded-manager/pkg/logger"
)

var (
	ErrReportsDisabled    = errors.New("reporting: weekly reports are disabled")
	errWeeklyNotAvailable = errors.New("reporting: weekly report store not configured")
)

const (
	DefaultWeeklyReports = 10
	MaxWeeklyReports     = 52
)

// WeeklyRepository persists report settings and generated reports.
type WeeklyRepository interface {
	GetWeeklyReportConfig(ctx context.Context, userID uint) (*store.WeeklyReportConfig, error)
	SaveWeeklyReportConfig(ctx context.Context, c *store.WeeklyReportConfig) error
	SaveWeeklyReport(ctx context.Context, r *store.WeeklyReport) error
	ListWeeklyReports(ctx context.Context, userID uint, limit int) ([]store.WeeklyReport, error)
}

func WithWeeklyStore(r WeeklyRepository) Option {
	return func(s *Service) { s.weekly = r }
}

type Schedule struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

type Sections struct {
	CallSummary     bool `json:"call_summary"`
	Analytics       bool `json:"analytics"`
	Alerts          bool `json:"alerts"`
	Recommendations bool `json:"recommendations"`
}

type WeeklyConfig struct {
	Enabled       bool       `json:"enabled"`
	Recipients    []string   `json:"recipients"`
	Schedule      Schedule   `json:"schedule"`
	Include       Sections   `json:"include"`
	LastSent      *time.Time `json:"last_sent"`
	NextScheduled *time.Time `json:"next_scheduled"`
}

// WeeklyConfigPatch carries optional updates; nil fields are left alone.
type WeeklyConfigPatch struct {
	Enabled    *bool     `json:"enabled"`
	Recipients *[]string `json:"recipients"`
	Schedule   *Schedule `json:"schedule"`
	Include    *Sections `json:"include"`
}

type SendResult struct {
	Status string             `json:"status"`
	SentAt time.Time          `json:"sent_at"`
	Report store.WeeklyReport `json:"report"`
}

func defaultWeeklyConfig(userID uint) *store.WeeklyReportConfig {
	return &store.WeeklyReportConfig{
		UserID:             userID,
		Recipients:         []string{},
		ScheduleDay:        "monday",
		ScheduleTime:       "09:00",
		IncludeCallSummary: true,
		IncludeAnalytics:   true,
		IncludeAlerts:      true,
	}
}

func (s *Service) weeklyConfig(ctx context.Context, userID uint) (*store.WeeklyReportConfig, error) {
	if userID == 0 {
		return nil, ErrInvalidRequest
	}
	if s.weekly == nil {
		return nil, errWeeklyNotAvailable
	}
	c, err := s.weekly.GetWeeklyReportConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = defaultWeeklyConfig(userID)
	}
	return c, nil
}

// WeeklyConfig returns the tenant's settings, or the defaults when none were saved.
func (s *Service) WeeklyConfig(ctx context.Context, userID uint) (WeeklyConfig, error) {
	c, err := s.weeklyConfig(ctx, userID)
	if err != nil {
		return WeeklyConfig{}, err
	}
	return s.weeklyView(c), nil
}

func (s *Service) UpdateWeeklyConfig(ctx context.Context, userID uint, p WeeklyConfigPatch) (WeeklyConfig, error) {
	c, err := s.weeklyConfig(ctx, userID)
	if err != nil {
		return WeeklyConfig{}, err
	}
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.Recipients != nil {
		rs := make([]string, 0, len(*p.Recipients))
		for _, r := range *p.Recipients {
			if r = strings.TrimSpace(r); r != "" {
				rs = append(rs, r)
			}
		}
		c.Recipients = rs
	}
	if p.Schedule != nil {
		c.ScheduleDay = strings.ToLower(strings.TrimSpace(p.Schedule.Day))
		c.ScheduleTime = strings.TrimSpace(p.Schedule.Time)
	}
	if p.Include != nil {
		c.IncludeCallSummary = p.Include.CallSummary
		c.IncludeAnalytics = p.Include.Analytics
		c.IncludeAlerts = p.Include.Alerts
		c.IncludeRecommendations = p.Include.Recommendations
	}
	if err := s.weekly.SaveWeeklyReportConfig(ctx, c); err != nil {
		return WeeklyConfig{}, err
	}
	return s.weeklyView(c), nil
}

// SendWeeklyNow builds the report for the last complete week, stores it and
// marks it sent.
func (s *Service) SendWeeklyNow(ctx context.Context, userID uint) (SendResult, error) {
	c, err := s.weeklyConfig(ctx, userID)
	if err != nil {
		return SendResult{}, err
	}
	if !c.Enabled {
		return SendResult{}, ErrReportsDisabled
	}
	now := s.now().UTC()
	start := weekStart(now).AddDate(0, 0, -7)
	r, err := s.buildWeeklyReport(ctx, userID, start, now)
	if err != nil {
		return SendResult{}, err
	}
	r.SentAt = &now
	if err := s.weekly.SaveWeeklyReport(ctx, &r); err != nil {
		return SendResult{}, err
	}
	c.LastSentAt = &now
	if err := s.weekly.SaveWeeklyReportConfig(ctx, c); err != nil {
		return SendResult{}, err
	}
	logger.From(ctx).Info("weekly report sent",
		"user_id", userID, "week_start", start.Format(dayLayout), "recipients", len(c.Recipients))
	return SendResult{Status: "sent", SentAt: now, Report: r}, nil
}

// WeeklyReports lists generated reports, newest week first.
func (s *Service) WeeklyReports(ctx context.Context, userID uint, limit int) ([]store.WeeklyReport, error) {
	if userID == 0 {
		return nil, ErrInvalidRequest
	}
	if limit == 0 {
		limit = DefaultWeeklyReports
	}
	if limit < 1 || limit > MaxWeeklyReports {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidRequest, MaxWeeklyReports)
	}
	if s.weekly == nil {
		return nil, errWeeklyNotAvailable
	}
	return s.weekly.ListWeeklyReports(ctx, userID, limit)
}

func (s *Service) buildWeeklyReport(ctx context.Context, userID uint, start, now time.Time) (store.WeeklyReport, error) {
	end := start.AddDate(0, 0, 7)
	rows, err := s.repo.ListAccessibleCallsInRange(ctx, userID, start, end)
	if err != nil {
		return store.WeeklyReport{}, err
	}
	prev, err := s.repo.ListAccessibleCallsInRange(ctx, userID, start.AddDate(0, 0, -7), start)
	if err != nil {
		return store.WeeklyReport{}, err
	}
	cur := tally(rows)
	r := store.WeeklyReport{
		UserID:         userID,
		WeekStart:      start,
		WeekEnd:        end,
		TotalCalls:     cur.total,
		CompletedCalls: cur.completed,
		MissedCalls:    cur.missed,
		AvgDuration:    round1(cur.avgDuration()),
		TotalCost:      round2(cur.cost),
		GeneratedAt:    now,
	}
	if p := tally(prev); p.total > 0 {
		pct := round1(float64(cur.total-p.total) / float64(p.total) * 100)
		r.CallsChangePct = &pct
	}
	return r, nil
}

func (s *Service) weeklyView(c *store.WeeklyReportConfig) WeeklyConfig {
	out := WeeklyConfig{
		Enabled:    c.Enabled,
		Recipients: []string(c.Recipients),
		Schedule:   Schedule{Day: c.ScheduleDay, Time: c.ScheduleTime},
		Include: Sections{
			CallSummary:     c.IncludeCallSummary,
			Analytics:       c.IncludeAnalytics,
			Alerts:          c.IncludeAlerts,
			Recommendations: c.IncludeRecommendations,
		},
		LastSent: c.LastSentAt,
	}
	if out.Recipients == nil {
		out.Recipients = []string{}
	}
	if c.Enabled {
		if next, ok := nextRun(s.now().UTC(), c.ScheduleDay, c.ScheduleTime); ok {
			out.NextScheduled = &next
		}
	}
	return out
}

// weekStart is the Monday 00:00 UTC on or before t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
}

// nextRun is the first day/clock occurrence strictly after now, in UTC.
func nextRun(now time.Time, day, clock string) (time.Time, bool) {
	at, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, false
	}
	want := -1
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), day) {
			want = int(wd)
		}
	}
	if want < 0 {
		return time.Time{}, false
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, time.UTC)
	next = next.AddDate(0, 0, (want-int(now.Weekday())+7)%7)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next, true
}
