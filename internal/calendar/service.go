package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"callrounded-manager/internal/store"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalid      = errors.New("calendar: invalid request")
	ErrNotConnected = errors.New("calendar: not connected")
	ErrSlotTaken    = errors.New("calendar: slot overlaps an existing appointment")
)

const (
	openingHour = 9
	closingHour = 18
	slotStep    = 30 * time.Minute

	DefaultDuration = 30
	MinDuration     = 15
	MaxDuration     = 120

	syncHorizonDays = 30
)

var validate = validator.New()

type Repository interface {
	GetCalendarIntegration(ctx context.Context, userID uint) (*store.CalendarIntegration, error)
	SaveCalendarIntegration(ctx context.Context, ci store.CalendarIntegration) error
	ListCalendarEvents(ctx context.Context, userID uint, from, to time.Time) ([]store.CalendarEvent, error)
	CreateCalendarEvent(ctx context.Context, e *store.CalendarEvent) error
	DeleteCalendarEvent(ctx context.Context, userID uint, id string) (bool, error)
	MarkCalendarSynced(ctx context.Context, userID uint, at time.Time, events int) error
}

// Service manages a tenant's calendar connection and locally stored appointments.
// Opening hours are evaluated in loc.
type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

func NewService(repo Repository, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, loc: loc, now: now}
}

type Status struct {
	Connected      bool       `json:"connected"`
	Email          string     `json:"email,omitempty"`
	CalendarID     string     `json:"calendar_id,omitempty"`
	UpcomingEvents int        `json:"upcoming_events"`
	LastSync       *time.Time `json:"last_sync"`
	EventsSynced   int        `json:"events_synced"`
}

func (s *Service) Status(ctx context.Context, userID uint) (Status, error) {
	ci, err := s.connected(ctx, userID)
	if errors.Is(err, ErrNotConnected) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	now := s.now()
	upcoming, err := s.repo.ListCalendarEvents(ctx, userID, now, now.AddDate(0, 0, 7))
	if err != nil {
		return Status{}, err
	}
	return Status{
		Connected:      true,
		Email:          ci.Email,
		CalendarID:     ci.CalendarID,
		UpcomingEvents: len(upcoming),
		LastSync:       ci.LastSync,
		EventsSynced:   ci.EventsSynced,
	}, nil
}

type ConnectRequest struct {
	Email      string `json:"email"`
	CalendarID string `json:"calendar_id"`
}

func (s *Service) Connect(ctx context.Context, userID uint, req ConnectRequest) (Status, error) {
	email := strings.TrimSpace(req.Email)
	if err := validate.Var(email, "required,email"); err != nil {
		return Status{}, fmt.Errorf("%w: email", ErrInvalid)
	}
	calID := strings.TrimSpace(req.CalendarID)
	if calID == "" {
		calID = "primary"
	}
	if err := s.repo.SaveCalendarIntegration(ctx, store.CalendarIntegration{
		UserID: userID, Email: email, CalendarID: calID, Connected: true,
	}); err != nil {
		return Status{}, err
	}
	return s.Status(ctx, userID)
}

func (s *Service) Disconnect(ctx context.Context, userID uint) error {
	ci, err := s.connected(ctx, userID)
	if err != nil {
		return err
	}
	ci.Connected = false
	return s.repo.SaveCalendarIntegration(ctx, *ci)
}

// ListEvents returns appointments starting within the next days days.
func (s *Service) ListEvents(ctx context.Context, userID uint, days int) ([]store.CalendarEvent, error) {
	if days == 0 {
		days = 7
	}
	if days < 1 || days > 30 {
		return nil, fmt.Errorf("%w: days must be between 1 and 30", ErrInvalid)
	}
	if _, err := s.connected(ctx, userID); err != nil {
		return nil, err
	}
	now := s.now()
	return s.repo.ListCalendarEvents(ctx, userID, now, now.AddDate(0, 0, days))
}

type EventInput struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CallID        *string   `json:"call_id"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
}

func (s *Service) CreateEvent(ctx context.Context, userID uint, in EventInput) (*store.CalendarEvent, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.StartAt.IsZero() || !in.EndAt.After(in.StartAt) {
		return nil, fmt.Errorf("%w: title, start_at and a later end_at are required", ErrInvalid)
	}
	if _, err := s.connected(ctx, userID); err != nil {
		return nil, err
	}
	clash, err := s.repo.ListCalendarEvents(ctx, userID, in.StartAt, in.EndAt)
	if err != nil {
		return nil, err
	}
	if len(clash) > 0 {
		return nil, ErrSlotTaken
	}
	e := &store.CalendarEvent{
		UserID:        userID,
		Title:         title,
		Description:   in.Description,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		CallID:        in.CallID,
		StartAt:       in.StartAt,
		EndAt:         in.EndAt,
	}
	if err := s.repo.CreateCalendarEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEvent reports false when the appointment does not belong to the tenant.
func (s *Service) DeleteEvent(ctx context.Context, userID uint, id string) (bool, error) {
	return s.repo.DeleteCalendarEvent(ctx, userID, id)
}

// Stats summarises the tenant's agenda: appointments this week (Monday to
// Monday in the service location), how many were booked from a call, and
// what is still ahead today.
type Stats struct {
	TotalEventsWeek int `json:"total_events_week"`
	AIBookings      int `json:"ai_bookings"`
	UpcomingToday   int `json:"upcoming_today"`
	SyncErrors      int `json:"sync_errors"`
}

func (s *Service) Stats(ctx context.Context, userID uint) (Stats, error) {
	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))

	week, err := s.repo.ListCalendarEvents(ctx, userID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return Stats{}, err
	}
	var out Stats
	out.TotalEventsWeek = len(week)
	tomorrow := today.AddDate(0, 0, 1)
	for _, e := range week {
		if e.CallID != nil && *e.CallID != "" {
			out.AIBookings++
		}
		if !e.StartAt.Before(now) && e.StartAt.Before(tomorrow) {
			out.UpcomingToday++
		}
	}
	return out, nil
}

type SyncResult struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// Sync reconciles the connection with the locally stored agenda: it counts the
// appointments of the next 30 days and records the sync time. Appointments are
// written locally when booked, so nothing is created or updated here.
func (s *Service) Sync(ctx context.Context, userID uint) (SyncResult, error) {
	if _, err := s.connected(ctx, userID); err != nil {
		return SyncResult{}, err
	}
	now := s.now()
	events, err := s.repo.ListCalendarEvents(ctx, userID, now, now.AddDate(0, 0, syncHorizonDays))
	if err != nil {
		return SyncResult{}, err
	}
	if err := s.repo.MarkCalendarSynced(ctx, userID, now, len(events)); err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Synced: len(events)}, nil
}

type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Slots struct {
	Date            string `json:"date"`
	DurationMinutes int    `json:"duration_minutes"`
	Slots           []Slot `json:"slots"`
}

// AvailableSlots lists free slots of duration minutes between opening and
// closing time on date (YYYY-MM-DD), stepping every 30 minutes.
func (s *Service) AvailableSlots(ctx context.Context, userID uint, date string, duration int) (Slots, error) {
	if duration == 0 {
		duration = DefaultDuration
	}
	if duration < MinDuration || duration > MaxDuration {
		return Slots{}, fmt.Errorf("%w: duration_minutes must be between %d and %d", ErrInvalid, MinDuration, MaxDuration)
	}
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return Slots{}, fmt.Errorf("%w: date", ErrInvalid)
	}
	open := time.Date(day.Year(), day.Month(), day.Day(), openingHour, 0, 0, 0, s.loc)
	closing := time.Date(day.Year(), day.Month(), day.Day(), closingHour, 0, 0, 0, s.loc)

	busy, err := s.repo.ListCalendarEvents(ctx, userID, open, closing)
	if err != nil {
		return Slots{}, err
	}
	length := time.Duration(duration) * time.Minute
	out := Slots{Date: date, DurationMinutes: duration, Slots: []Slot{}}
	for start := open; !start.Add(length).After(closing); start = start.Add(slotStep) {
		end := start.Add(length)
		free := true
		for _, b := range busy {
			if end.After(b.StartAt) && start.Before(b.EndAt) {
				free = false
				break
			}
		}
		if free {
			out.Slots = append(out.Slots, Slot{Start: start, End: end})
		}
	}
	return out, nil
}

func (s *Service) connected(ctx context.Context, userID uint) (*store.CalendarIntegration, error) {
	ci, err := s.repo.GetCalendarIntegration(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ci == nil || !ci.Connected {
		return nil, ErrNotConnected
	}
	return ci, nil
}
