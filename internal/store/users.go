package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertUser inserts or refreshes a user by OpenID. The configured owner is always admin;
// LastSignedIn defaults to now.
func (s *Store) UpsertUser(ctx context.Context, u User) error {
	if s.skipWrite(ctx, "upsert_user") {
		return nil
	}
	if u.OpenID == "" {
		return fmt.Errorf("%w: open_id is required", ErrInvalid)
	}

	updates := []string{"last_signed_in", "updated_at"}
	if u.Name != "" {
		updates = append(updates, "name")
	}
	if u.Email != "" {
		u.Email = normalizeEmail(u.Email)
		updates = append(updates, "email")
	}
	if u.LoginMethod != "" {
		updates = append(updates, "login_method")
	}
	if s.ownerOpenID != "" && u.OpenID == s.ownerOpenID {
		u.Role = RoleAdmin
	}
	if u.Role != "" {
		updates = append(updates, "role")
	} else {
		u.Role = RoleUser
	}
	if u.LastSignedIn.IsZero() {
		u.LastSignedIn = s.timestamp()
	}
	if u.ID == 0 {
		u.IsActive = true
	}
	if err := s.check(u); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "open_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(&u).Error
}

func (s *Store) GetUserByOpenID(ctx context.Context, openID string) (*User, error) {
	if s.skipRead(ctx, "get_user_by_open_id") {
		return nil, nil
	}
	return first[User](s.db.WithContext(ctx).Where("open_id = ?", openID))
}

func (s *Store) GetUserByID(ctx context.Context, id uint) (*User, error) {
	if s.skipRead(ctx, "get_user_by_id") {
		return nil, nil
	}
	return first[User](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if s.skipRead(ctx, "get_user_by_email") {
		return nil, nil
	}
	return first[User](s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)))
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	out := []User{}
	if s.skipRead(ctx, "list_users") {
		return out, nil
	}
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// NewUser is the input for an email/password account created by an admin.
type NewUser struct {
	Email        string
	Name         string
	Role         UserRole
	PasswordHash string
}

// CreateUser adds an email/password account. Duplicate emails return ErrConflict.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	if s.skipWrite(ctx, "create_user") {
		return nil, nil
	}
	u := User{
		OpenID:       "local:" + uuid.NewString(),
		Email:        normalizeEmail(in.Email),
		Name:         in.Name,
		LoginMethod:  "password",
		Role:         in.Role,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		LastSignedIn: s.timestamp(),
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalid)
	}
	if err := s.check(u); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserPatch carries optional field updates; nil fields are left unchanged.
type UserPatch struct {
	Name         *string
	Email        *string
	Role         *UserRole
	IsActive     *bool
	PasswordHash *string
}

// UpdateUser applies p and returns the updated row, or nil when id does not exist.
func (s *Store) UpdateUser(ctx context.Context, id uint, p UserPatch) (*User, error) {
	if s.skipWrite(ctx, "update_user") {
		return nil, nil
	}
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return nil, fmt.Errorf("%w: role must be user or admin", ErrInvalid)
		}
		updates["role"] = *p.Role
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}
	if p.PasswordHash != nil {
		updates["password_hash"] = *p.PasswordHash
	}
	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		if err := s.validate.Var(email, "required,email"); err != nil {
			return nil, fmt.Errorf("%w: invalid email", ErrInvalid)
		}
		updates["email"] = email
	}

	var out *User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := first[User](tx.Where("id = ?", id))
		if err != nil || u == nil {
			return err
		}
		if email, ok := updates["email"]; ok {
			var n int64
			if err := tx.Model(&User{}).Where("email = ? AND id <> ?", email, id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: email already registered", ErrConflict)
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(u).Updates(updates).Error; err != nil {
				return err
			}
		}
		out, err = first[User](tx.Where("id = ?", id))
		return err
	})
	return out, err
}

// DeleteUser removes the user and every row the tenant owns.
func (s *Store) DeleteUser(ctx context.Context, id uint) (bool, error) {
	if s.skipWrite(ctx, "delete_user") {
		return false, nil
	}
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kbIDs := tx.Model(&KnowledgeBase{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("knowledge_base_id IN (?)", kbIDs).Delete(&KnowledgeBaseSource{}).Error; err != nil {
			return err
		}
		agentIDs := tx.Model(&Agent{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("agent_id IN (?)", agentIDs).Delete(&UserAgentAssignment{}).Error; err != nil {
			return err
		}
		for _, m := range []any{&UserAgentAssignment{}, &KnowledgeBase{}, &Call{}, &PhoneNumber{}, &Agent{}, &Event{}, &AlertRule{}, &CalendarEvent{}, &CalendarIntegration{}, &AgentTemplate{}, &WeeklyReportConfig{}, &WeeklyReport{}, &TenantSettings{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&User{})
		deleted = res.RowsAffected > 0
		return res.Error
	})
	return deleted, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
