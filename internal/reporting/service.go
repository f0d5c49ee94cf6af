package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"callrounded-manager/internal/store"
	"callrounded-manager/pkg/logger"
	"callrounded-manager/pkg/utils"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
// Implementations must scope every read to the agents the user owns or has
// been assigned.
type Repository interface {
	GetAccessibleAgents(ctx context.Context, userID uint) ([]store.Agent, error)
	ListAccessibleCallsInRange(ctx context.Context, userID uint, from, to time.Time) ([]store.Call, error)
}

const (
	dayLayout       = "2006-01-02"
	DefaultCacheTTL = 60 * time.Second
)

var (
	openStart = time.Unix(0, 0).UTC()
	openEnd   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

type Service struct {
	repo     Repository
	weekly   WeeklyRepository
	cache    redis.Cmdable
	cacheTTL time.Duration
	now      func() time.Time
}

type Option func(*Service)

// WithCache enables response caching. A nil client disables it.
func WithCache(rdb redis.Cmdable, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = rdb
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, cacheTTL: DefaultCacheTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Dashboard(ctx context.Context, req DashboardRequest) (DashboardStats, error) {
	if req.UserID == 0 {
		return DashboardStats{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return DashboardStats{}, errors.New("reporting: repository not configured")
	}
	rng, err := dashboardRange(req)
	if err != nil {
		return DashboardStats{}, err
	}
	key := fmt.Sprintf("reporting:dashboard:%d:%s:%s", req.UserID, req.FromDate, req.ToDate)
	return cached(ctx, s, key, func() (DashboardStats, error) {
		return s.dashboard(ctx, req.UserID, rng)
	})
}

func (s *Service) dashboard(ctx context.Context, userID uint, rng TimeRange) (DashboardStats, error) {
	rows, err := s.repo.ListAccessibleCallsInRange(ctx, userID, rng.From, rng.To)
	if err != nil {
		return DashboardStats{}, err
	}
	agents, err := s.repo.GetAccessibleAgents(ctx, userID)
	if err != nil {
		return DashboardStats{}, err
	}

	now := s.now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out DashboardStats
	out.TotalAgents = len(agents)
	for _, a := range agents {
		if a.Status == store.AgentActive {
			out.ActiveAgents++
		}
	}

	t := tally(rows)
	out.TotalCalls = t.total
	out.CompletedCalls = t.completed
	out.MissedCalls = t.missed
	out.FailedCalls = t.failed
	out.AvgDuration = round1(t.avgDuration())
	out.TotalCost = round2(t.cost)
	out.ResponseRate = round1(t.completionRate())
	for _, c := range rows {
		if !c.OccurredAt().Before(todayStart) {
			out.TotalCallsToday++
		}
	}
	return out, nil
}

func (s *Service) Analytics(ctx context.Context, req AnalyticsRequest) (Analytics, error) {
	if req.UserID == 0 {
		return Analytics{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Analytics{}, errors.New("reporting: repository not configured")
	}
	rng, label, err := analyticsRange(req, s.now().UTC())
	if err != nil {
		return Analytics{}, err
	}
	key := fmt.Sprintf("reporting:analytics:%d:%s:%s:%s", req.UserID, label, req.FromDate, req.ToDate)
	return cached(ctx, s, key, func() (Analytics, error) {
		return s.analytics(ctx, req.UserID, rng, label)
	})
}

func (s *Service) analytics(ctx context.Context, userID uint, rng TimeRange, label string) (Analytics, error) {
	rows, err := s.repo.ListAccessibleCallsInRange(ctx, userID, rng.From, rng.To)
	if err != nil {
		return Analytics{}, err
	}
	span := rng.To.Sub(rng.From)
	prevRows, err := s.repo.ListAccessibleCallsInRange(ctx, userID, rng.From.Add(-span), rng.From)
	if err != nil {
		return Analytics{}, err
	}
	agents, err := s.repo.GetAccessibleAgents(ctx, userID)
	if err != nil {
		return Analytics{}, err
	}
	names := make(map[string]string, len(agents))
	for _, a := range agents {
		names[a.ID] = a.Name
	}

	cur := tally(rows)
	out := Analytics{
		Period:         label,
		Range:          rng,
		TotalCalls:     cur.total,
		CompletedCalls: cur.completed,
		MissedCalls:    cur.missed,
		FailedCalls:    cur.failed,
		CompletionRate: round1(cur.completionRate()),
		AvgDuration:    round1(cur.avgDuration()),
		TotalCost:      round2(cur.cost),
	}
	if prev := tally(prevRows); prev.total > 0 {
		pct := round1(float64(cur.total-prev.total) / float64(prev.total) * 100)
		delta := round1(cur.completionRate() - prev.completionRate())
		out.CallsChangePct = &pct
		out.CompletionRateChange = &delta
	}

	byDay := map[string][]store.Call{}
	byAgent := map[string][]store.Call{}
	hours := make([]HourlyBucket, 24)
	for h := range hours {
		hours[h].Hour = h
	}
	for _, c := range rows {
		at := c.OccurredAt().UTC()
		day := at.Format(dayLayout)
		byDay[day] = append(byDay[day], c)
		byAgent[c.AgentID] = append(byAgent[c.AgentID], c)
		hours[at.Hour()].CallCount++
	}

	out.DailyStats = make([]DailyStats, 0, len(byDay))
	for day, calls := range byDay {
		t := tally(calls)
		out.DailyStats = append(out.DailyStats, DailyStats{
			Date:           day,
			TotalCalls:     t.total,
			CompletedCalls: t.completed,
			MissedCalls:    t.missed,
			AvgDuration:    round1(t.avgDuration()),
			TotalCost:      round2(t.cost),
		})
	}
	sort.Slice(out.DailyStats, func(i, j int) bool { return out.DailyStats[i].Date < out.DailyStats[j].Date })

	out.HourlyDistribution = hours

	out.AgentPerformance = make([]AgentPerformance, 0, len(byAgent))
	for agentID, calls := range byAgent {
		t := tally(calls)
		name, ok := names[agentID]
		if !ok || name == "" {
			name = "Unknown agent"
		}
		out.AgentPerformance = append(out.AgentPerformance, AgentPerformance{
			AgentID:        agentID,
			AgentName:      name,
			TotalCalls:     t.total,
			CompletedCalls: t.completed,
			CompletionRate: round1(t.completionRate()),
			AvgDuration:    round1(t.avgDuration()),
		})
	}
	sort.Slice(out.AgentPerformance, func(i, j int) bool {
		a, b := out.AgentPerformance[i], out.AgentPerformance[j]
		if a.TotalCalls != b.TotalCalls {
			return a.TotalCalls > b.TotalCalls
		}
		return a.AgentID < b.AgentID
	})
	return out, nil
}

// Trends returns one point per UTC day over the last days days, zero-filled.
func (s *Service) Trends(ctx context.Context, userID uint, days int) (Trends, error) {
	days, err := lookback(userID, days)
	if err != nil {
		return Trends{}, err
	}
	now := s.now().UTC()
	from := now.AddDate(0, 0, -days)
	rows, err := s.repo.ListAccessibleCallsInRange(ctx, userID, from, now.Add(time.Nanosecond))
	if err != nil {
		return Trends{}, err
	}
	points := map[string]*TrendPoint{}
	for _, c := range rows {
		day := c.OccurredAt().UTC().Format(dayLayout)
		p, ok := points[day]
		if !ok {
			p = &TrendPoint{Date: day}
			points[day] = p
		}
		p.Calls++
		if c.Status == store.CallCompleted {
			p.Completed++
		}
		p.Cost += c.Cost
	}

	out := Trends{Days: days, Data: make([]TrendPoint, 0, days+1)}
	for d := from; !d.After(now); d = d.AddDate(0, 0, 1) {
		day := d.Format(dayLayout)
		p := TrendPoint{Date: day}
		if got, ok := points[day]; ok {
			p = *got
		}
		p.Cost = round2(p.Cost)
		out.Data = append(out.Data, p)
	}
	return out, nil
}

// PeakHours finds the busiest hour of day and weekday over the last days days.
func (s *Service) PeakHours(ctx context.Context, userID uint, days int) (PeakHours, error) {
	days, err := lookback(userID, days)
	if err != nil {
		return PeakHours{}, err
	}
	now := s.now().UTC()
	rows, err := s.repo.ListAccessibleCallsInRange(ctx, userID, now.AddDate(0, 0, -days), now.Add(time.Nanosecond))
	if err != nil {
		return PeakHours{}, err
	}

	// Weeks start on Monday.
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
	hourly := make([]HourlyBucket, 24)
	for h := range hourly {
		hourly[h].Hour = h
	}
	daily := make([]WeekdayBucket, len(weekdays))
	for i, wd := range weekdays {
		daily[i].Day = wd.String()
	}
	for _, c := range rows {
		at := c.OccurredAt().UTC()
		hourly[at.Hour()].CallCount++
		daily[(int(at.Weekday())+6)%7].Calls++
	}

	out := PeakHours{HourlyDistribution: hourly, DailyDistribution: daily}
	for _, h := range hourly {
		if h.CallCount > out.PeakHourCalls {
			out.PeakHour, out.PeakHourCalls = h.Hour, h.CallCount
		}
	}
	out.PeakDay = daily[0].Day
	for _, d := range daily {
		if d.Calls > out.PeakDayCalls {
			out.PeakDay, out.PeakDayCalls = d.Day, d.Calls
		}
	}
	return out, nil
}

func lookback(userID uint, days int) (int, error) {
	if userID == 0 {
		return 0, ErrInvalidRequest
	}
	if days == 0 {
		return 30, nil
	}
	if days < 7 || days > 90 {
		return 0, ErrInvalidRequest
	}
	return days, nil
}

func cached[T any](ctx context.Context, s *Service, key string, build func() (T, error)) (T, error) {
	log := logger.From(ctx)
	var hit T
	if s.cache != nil {
		ok, err := utils.GetJSON(ctx, s.cache, key, &hit)
		if err != nil {
			log.Warn("reporting cache read failed", "key", key, "err", err)
		} else if ok {
			return hit, nil
		}
	}
	out, err := build()
	if err != nil {
		return out, err
	}
	if s.cache != nil {
		if err := utils.SetJSON(ctx, s.cache, key, out, s.cacheTTL); err != nil {
			log.Warn("reporting cache write failed", "key", key, "err", err)
		}
	}
	return out, nil
}

func parseDay(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidRequest, raw)
	}
	return t, nil
}

func dashboardRange(req DashboardRequest) (TimeRange, error) {
	rng := TimeRange{From: openStart, To: openEnd}
	if req.FromDate != "" {
		from, err := parseDay(req.FromDate)
		if err != nil {
			return TimeRange{}, err
		}
		rng.From = from
	}
	if req.ToDate != "" {
		to, err := parseDay(req.ToDate)
		if err != nil {
			return TimeRange{}, err
		}
		rng.To = to.AddDate(0, 0, 1)
	}
	if !rng.valid() {
		return TimeRange{}, ErrInvalidRequest
	}
	return rng, nil
}

// analyticsRange resolves explicit dates first, then the named period ending now.
func analyticsRange(req AnalyticsRequest, now time.Time) (TimeRange, string, error) {
	if req.FromDate != "" && req.ToDate != "" {
		from, err := parseDay(req.FromDate)
		if err != nil {
			return TimeRange{}, "", err
		}
		to, err := parseDay(req.ToDate)
		if err != nil {
			return TimeRange{}, "", err
		}
		rng := TimeRange{From: from, To: to.AddDate(0, 0, 1)}
		if !rng.valid() {
			return TimeRange{}, "", ErrInvalidRequest
		}
		return rng, PeriodCustom, nil
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := now.Add(time.Nanosecond)
	switch req.Period {
	case PeriodDay:
		return TimeRange{From: midnight, To: end}, PeriodDay, nil
	case PeriodWeek:
		sinceMonday := (int(now.Weekday()) + 6) % 7
		return TimeRange{From: midnight.AddDate(0, 0, -sinceMonday), To: end}, PeriodWeek, nil
	case PeriodMonth:
		return TimeRange{From: midnight.AddDate(0, 0, 1-now.Day()), To: end}, PeriodMonth, nil
	case "":
		return TimeRange{From: now.AddDate(0, 0, -7), To: end}, PeriodLast7Days, nil
	default:
		return TimeRange{}, "", fmt.Errorf("%w: unknown period %q", ErrInvalidRequest, req.Period)
	}
}

type callTally struct {
	total, completed, missed, failed int
	durationSum, durationCount       int
	cost                             float64
}

func tally(rows []store.Call) callTally {
	var t callTally
	for _, c := range rows {
		t.total++
		switch c.Status {
		case store.CallCompleted:
			t.completed++
		case store.CallMissed:
			t.missed++
		case store.CallFailed:
			t.failed++
		}
		if c.Duration > 0 {
			t.durationSum += c.Duration
			t.durationCount++
		}
		t.cost += c.Cost
	}
	return t
}

func (t callTally) avgDuration() float64 {
	if t.durationCount == 0 {
		return 0
	}
	return float64(t.durationSum) / float64(t.durationCount)
}

func (t callTally) completionRate() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.completed) / float64(t.total) * 100
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
