package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	knowledgeBaseUpsertColumns = []string{"name", "description", "source_count", "updated_at"}
	sourceUpsertColumns        = []string{"status", "updated_at"}
)

func (s *Store) GetKnowledgeBasesByUserID(ctx context.Context, userID uint) ([]KnowledgeBase, error) {
	out := []KnowledgeBase{}
	if s.skipRead(ctx, "get_knowledge_bases_by_user_id") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

func (s *Store) GetKnowledgeBaseByID(ctx context.Context, id string) (*KnowledgeBase, error) {
	if s.skipRead(ctx, "get_knowledge_base_by_id") {
		return nil, nil
	}
	return first[KnowledgeBase](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) GetKnowledgeBaseForUser(ctx context.Context, userID uint, id string) (*KnowledgeBase, error) {
	if s.skipRead(ctx, "get_knowledge_base_for_user") {
		return nil, nil
	}
	return first[KnowledgeBase](s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

// UpsertKnowledgeBase inserts a knowledge base or refreshes name, description and source count.
func (s *Store) UpsertKnowledgeBase(ctx context.Context, kb KnowledgeBase) error {
	if s.skipWrite(ctx, "upsert_knowledge_base") {
		return nil
	}
	if err := s.check(kb); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(knowledgeBaseUpsertColumns),
	}).Create(&kb).Error
}

func (s *Store) GetSourcesByKnowledgeBaseID(ctx context.Context, knowledgeBaseID string) ([]KnowledgeBaseSource, error) {
	out := []KnowledgeBaseSource{}
	if s.skipRead(ctx, "get_sources_by_knowledge_base_id") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("knowledge_base_id = ?", knowledgeBaseID).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// UpsertKnowledgeBaseSource inserts a source or refreshes its ingestion status.
func (s *Store) UpsertKnowledgeBaseSource(ctx context.Context, src KnowledgeBaseSource) error {
	if s.skipWrite(ctx, "upsert_knowledge_base_source") {
		return nil
	}
	if src.Status == "" {
		src.Status = SourceIngesting
	}
	if err := s.check(src); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(sourceUpsertColumns),
	}).Create(&src).Error
}

// DeleteSourcesResult is the authoritative outcome of a source deletion.
type DeleteSourcesResult struct {
	Deleted     int64 `json:"deleted"`
	SourceCount int   `json:"source_count"`
}

var errKnowledgeBaseMissing = errors.New("knowledge base missing")

// DeleteKnowledgeBaseSources removes the listed sources of one tenant's knowledge base and
// decrements its source count by the number of rows actually removed, in one transaction.
// Ids that do not belong to the knowledge base are ignored. A missing knowledge base yields (nil, nil).
func (s *Store) DeleteKnowledgeBaseSources(ctx context.Context, userID uint, knowledgeBaseID string, sourceIDs []string) (*DeleteSourcesResult, error) {
	if len(sourceIDs) == 0 {
		return nil, fmt.Errorf("%w: source_ids must not be empty", ErrInvalid)
	}
	if s.skipWrite(ctx, "delete_knowledge_base_sources") {
		return nil, nil
	}

	var out DeleteSourcesResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kb, err := first[KnowledgeBase](tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", knowledgeBaseID, userID))
		if err != nil {
			return err
		}
		if kb == nil {
			return errKnowledgeBaseMissing
		}

		res := tx.Where("knowledge_base_id = ? AND id IN ?", knowledgeBaseID, sourceIDs).Delete(&KnowledgeBaseSource{})
		if res.Error != nil {
			return res.Error
		}
		out.Deleted = res.RowsAffected
		if out.Deleted > 0 {
			// single statement so concurrent deletes cannot lose a decrement
			err := tx.Model(&KnowledgeBase{}).Where("id = ?", knowledgeBaseID).
				Update("source_count", gorm.Expr("CASE WHEN source_count > ? THEN source_count - ? ELSE 0 END", out.Deleted, out.Deleted)).Error
			if err != nil {
				return err
			}
		}
		return tx.Model(&KnowledgeBase{}).Select("source_count").Where("id = ?", knowledgeBaseID).Scan(&out.SourceCount).Error
	})
	if errors.Is(err, errKnowledgeBaseMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteKnowledgeBaseSource removes a single source.
func (s *Store) DeleteKnowledgeBaseSource(ctx context.Context, userID uint, knowledgeBaseID, sourceID string) (*DeleteSourcesResult, error) {
	return s.DeleteKnowledgeBaseSources(ctx, userID, knowledgeBaseID, []string{sourceID})
}
