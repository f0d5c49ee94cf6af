package knowledge

import (
	"context"
	"errors"
	"strings"

	"callrounded-manager/internal/store"
)

var ErrNoSources = errors.New("knowledge: source_ids required")

type Repository interface {
	GetKnowledgeBasesByUserID(ctx context.Context, userID uint) ([]store.KnowledgeBase, error)
	GetKnowledgeBaseForUser(ctx context.Context, userID uint, id string) (*store.KnowledgeBase, error)
	GetSourcesByKnowledgeBaseID(ctx context.Context, knowledgeBaseID string) ([]store.KnowledgeBaseSource, error)
	DeleteKnowledgeBaseSources(ctx context.Context, userID uint, knowledgeBaseID string, sourceIDs []string) (*store.DeleteSourcesResult, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// Detail is a knowledge base with its sources.
type Detail struct {
	store.KnowledgeBase
	Sources []store.KnowledgeBaseSource `json:"sources"`
}

func (s *Service) List(ctx context.Context, userID uint) ([]store.KnowledgeBase, error) {
	return s.repo.GetKnowledgeBasesByUserID(ctx, userID)
}

// Get returns nil when the knowledge base does not exist for userID.
func (s *Service) Get(ctx context.Context, userID uint, id string) (*Detail, error) {
	kb, err := s.repo.GetKnowledgeBaseForUser(ctx, userID, id)
	if err != nil || kb == nil {
		return nil, err
	}
	sources, err := s.repo.GetSourcesByKnowledgeBaseID(ctx, kb.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{KnowledgeBase: *kb, Sources: sources}, nil
}

// Sources lists a knowledge base's sources; ok is false when it is not the tenant's.
func (s *Service) Sources(ctx context.Context, userID uint, id string) ([]store.KnowledgeBaseSource, bool, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil || d == nil {
		return nil, false, err
	}
	return d.Sources, true, nil
}

// DeleteSources removes sourceIDs from the knowledge base and returns the
// resulting count. Blank and repeated ids are dropped first.
func (s *Service) DeleteSources(ctx context.Context, userID uint, id string, sourceIDs []string) (*store.DeleteSourcesResult, error) {
	seen := make(map[string]struct{}, len(sourceIDs))
	ids := make([]string, 0, len(sourceIDs))
	for _, sid := range sourceIDs {
		sid = strings.TrimSpace(sid)
		if sid == "" {
			continue
		}
		if _, dup := seen[sid]; dup {
			continue
		}
		seen[sid] = struct{}{}
		ids = append(ids, sid)
	}
	if len(ids) == 0 {
		return nil, ErrNoSources
	}
	return s.repo.DeleteKnowledgeBaseSources(ctx, userID, id, ids)
}
