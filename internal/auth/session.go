package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"callrounded-manager/internal/store"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUnauthorized       = errors.New("auth: unauthorized")
)

type UserStore interface {
	GetUserByID(ctx context.Context, id uint) (*store.User, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	UpsertUser(ctx context.Context, u store.User) error
}

// Sessions authenticates email/password users and rotates their tokens.
type Sessions struct {
	tokens *Manager
	users  UserStore
	now    func() time.Time
}

func NewSessions(tokens *Manager, users UserStore, now func() time.Time) *Sessions {
	if now == nil {
		now = time.Now
	}
	return &Sessions{tokens: tokens, users: users, now: now}
}

func (s *Sessions) Tokens() *Manager { return s.tokens }

// Login checks the password and issues a token pair. Unknown, inactive and
// password-less accounts all fail with ErrInvalidCredentials.
func (s *Sessions) Login(ctx context.Context, email, password string) (*store.User, TokenPair, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("auth: lookup user: %w", err)
	}
	if u == nil || !u.IsActive || u.PasswordHash == "" {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	now := s.now()
	pair, err := s.tokens.IssuePair(now, u.ID, string(u.Role))
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.users.UpsertUser(ctx, store.User{OpenID: u.OpenID, LastSignedIn: now.UTC()}); err != nil {
		return nil, TokenPair{}, fmt.Errorf("auth: touch last sign-in: %w", err)
	}
	u.LastSignedIn = now.UTC()
	return u, pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Sessions) Refresh(ctx context.Context, refreshToken string) (*store.User, string, error) {
	now := s.now()
	claims, err := s.tokens.Verify(refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return nil, "", ErrUnauthorized
	}
	u, err := s.active(ctx, claims.UserID)
	if err != nil {
		return nil, "", err
	}
	access, err := s.tokens.IssueAccess(now, u.ID, string(u.Role))
	if err != nil {
		return nil, "", err
	}
	return u, access, nil
}

// Authenticate resolves an access token to an active user.
func (s *Sessions) Authenticate(ctx context.Context, accessToken string) (*store.User, error) {
	claims, err := s.tokens.Verify(accessToken, TokenTypeAccess, s.now())
	if err != nil {
		return nil, ErrUnauthorized
	}
	return s.active(ctx, claims.UserID)
}

func (s *Sessions) active(ctx context.Context, id uint) (*store.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, ErrUnauthorized
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}
