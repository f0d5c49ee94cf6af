package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"callrounded-manager/internal/store"
)

// MemoryRepo keeps events in process. Used by tests and by callers that
// want notifications without a database.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID uint
	events []store.Event
	clock  func() time.Time
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{clock: time.Now} }

func (r *MemoryRepo) CreateEvent(_ context.Context, e *store.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.clock().UTC()
	}
	r.events = append(r.events, *e)
	return nil
}

func (r *MemoryRepo) GetUnnotifiedEvents(ctx context.Context, userID uint) ([]store.Event, error) {
	return r.ListEvents(ctx, userID, store.EventFilter{Unnotified: true, Limit: len(r.events) + 1})
}

func (r *MemoryRepo) ListEvents(_ context.Context, userID uint, f store.EventFilter) ([]store.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Event, 0)
	for _, e := range r.events {
		if e.UserID != userID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Unnotified && e.IsNotified != 0 {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) MarkEventAsNotified(_ context.Context, userID, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].ID == id && r.events[i].UserID == userID {
			r.events[i].IsNotified = 1
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) MarkAllEventsNotified(_ context.Context, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.events {
		if r.events[i].UserID == userID && r.events[i].IsNotified == 0 {
			r.events[i].IsNotified = 1
			n++
		}
	}
	return n, nil
}
