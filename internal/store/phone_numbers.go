package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var phoneNumberUpsertColumns = []string{"status", "agent_id", "updated_at"}

func (s *Store) GetPhoneNumbersByUserID(ctx context.Context, userID uint) ([]PhoneNumber, error) {
	out := []PhoneNumber{}
	if s.skipRead(ctx, "get_phone_numbers_by_user_id") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("number ASC").Find(&out).Error
	return out, err
}

func (s *Store) GetPhoneNumberForUser(ctx context.Context, userID uint, id string) (*PhoneNumber, error) {
	if s.skipRead(ctx, "get_phone_number_for_user") {
		return nil, nil
	}
	return first[PhoneNumber](s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID))
}

// UpsertPhoneNumber inserts a number or refreshes its status and agent binding.
func (s *Store) UpsertPhoneNumber(ctx context.Context, p PhoneNumber) error {
	if s.skipWrite(ctx, "upsert_phone_number") {
		return nil
	}
	if p.Status == "" {
		p.Status = PhoneNumberActive
	}
	if err := s.check(p); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(phoneNumberUpsertColumns),
	}).Create(&p).Error
}

func (s *Store) SetPhoneNumberStatus(ctx context.Context, userID uint, id string, status PhoneNumberStatus) (*PhoneNumber, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: phone number status must be active or inactive", ErrInvalid)
	}
	if s.skipWrite(ctx, "set_phone_number_status") {
		return nil, nil
	}
	return s.updatePhoneNumberStatus(ctx, userID, id, func(PhoneNumberStatus) PhoneNumberStatus { return status })
}

func (s *Store) TogglePhoneNumberStatus(ctx context.Context, userID uint, id string) (*PhoneNumber, error) {
	if s.skipWrite(ctx, "toggle_phone_number_status") {
		return nil, nil
	}
	return s.updatePhoneNumberStatus(ctx, userID, id, PhoneNumberStatus.Toggled)
}

func (s *Store) updatePhoneNumberStatus(ctx context.Context, userID uint, id string, next func(PhoneNumberStatus) PhoneNumberStatus) (*PhoneNumber, error) {
	var out *PhoneNumber
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := first[PhoneNumber](tx.Where("id = ? AND user_id = ?", id, userID))
		if err != nil || p == nil {
			return err
		}
		p.Status = next(p.Status)
		if err := tx.Model(p).Update("status", p.Status).Error; err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}
