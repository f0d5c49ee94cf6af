package notify

import (
	"context"
	"errors"
	"fmt"

	"callrounded-manager/internal/store"
	"callrounded-manager/pkg/logger"
)

// Repository is the persistence contract for tenant notifications.
// Events are only ever inserted and flagged as notified.
type Repository interface {
	CreateEvent(ctx context.Context, e *store.Event) error
	GetUnnotifiedEvents(ctx context.Context, userID uint) ([]store.Event, error)
	ListEvents(ctx context.Context, userID uint, f store.EventFilter) ([]store.Event, error)
	MarkEventAsNotified(ctx context.Context, userID, id uint) (bool, error)
	MarkAllEventsNotified(ctx context.Context, userID uint) (int64, error)
}

// Service writes and drains the per-tenant notification outbox.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var ErrInvalidEvent = errors.New("notify: invalid event")

// Emit validates and stores e.
func (s *Service) Emit(ctx context.Context, e store.Event) (store.Event, error) {
	if s.repo == nil {
		return store.Event{}, errors.New("notify: repository not configured")
	}
	if e.UserID == 0 || !e.Type.Valid() || e.Title == "" {
		return store.Event{}, ErrInvalidEvent
	}
	e.IsNotified = 0
	if err := s.repo.CreateEvent(ctx, &e); err != nil {
		return store.Event{}, fmt.Errorf("notify: create event: %w", err)
	}
	logger.From(ctx).Debug("event emitted", "user_id", e.UserID, "type", e.Type, "event_id", e.ID)
	return e, nil
}

// CallMissed records a missed call for the owning tenant.
func (s *Service) CallMissed(ctx context.Context, c store.Call) (store.Event, error) {
	caller := c.CallerNumber
	if caller == "" {
		caller = "an unknown number"
	}
	callID, agentID := c.ID, c.AgentID
	return s.Emit(ctx, store.Event{
		UserID:         c.UserID,
		Type:           store.EventCallMissed,
		Title:          "Missed call",
		Message:        fmt.Sprintf("A call from %s was missed.", caller),
		RelatedAgentID: &agentID,
		RelatedCallID:  &callID,
	})
}

// AgentOffline records that an agent stopped answering.
func (s *Service) AgentOffline(ctx context.Context, a store.Agent) (store.Event, error) {
	agentID := a.ID
	return s.Emit(ctx, store.Event{
		UserID:         a.UserID,
		Type:           store.EventAgentOffline,
		Title:          "Agent offline",
		Message:        fmt.Sprintf("%s is no longer active.", a.Name),
		RelatedAgentID: &agentID,
	})
}

// SystemAlert records an alert raised by a rule or by an operator.
func (s *Service) SystemAlert(ctx context.Context, userID uint, title, message string) (store.Event, error) {
	return s.Emit(ctx, store.Event{
		UserID:  userID,
		Type:    store.EventSystemAlert,
		Title:   title,
		Message: message,
	})
}

func (s *Service) Pending(ctx context.Context, userID uint) ([]store.Event, error) {
	return s.repo.GetUnnotifiedEvents(ctx, userID)
}

func (s *Service) History(ctx context.Context, userID uint, f store.EventFilter) ([]store.Event, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, ErrInvalidEvent
	}
	return s.repo.ListEvents(ctx, userID, f)
}

// Acknowledge marks one event as notified; false means it does not exist for the tenant.
func (s *Service) Acknowledge(ctx context.Context, userID, id uint) (bool, error) {
	return s.repo.MarkEventAsNotified(ctx, userID, id)
}

func (s *Service) AcknowledgeAll(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllEventsNotified(ctx, userID)
}
