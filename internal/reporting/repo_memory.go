package reporting

import (
	"context"
	"sync"
	"time"

	"callrounded-manager/internal/store"
)

// MemoryRepo is an in-memory reporting repository for tests.
// It enforces tenant isolation on reads and knows no assignments, so only
// owned rows are accessible.
type MemoryRepo struct {
	mu sync.Mutex

	Agents []store.Agent
	Calls  []store.Call
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) GetAccessibleAgents(_ context.Context, userID uint) ([]store.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Agent, 0)
	for _, a := range r.Agents {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListAccessibleCallsInRange(_ context.Context, userID uint, from, to time.Time) ([]store.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Call, 0)
	for _, c := range r.Calls {
		if c.UserID != userID {
			continue
		}
		at := c.OccurredAt()
		if at.Before(from) || !at.Before(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
