package auth

import (
	"context"
	"errors"

	"callrounded-manager/internal/store"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxRole
	ctxUser
)

var ErrNoIdentity = errors.New("auth: no identity in context")

func WithIdentity(ctx context.Context, userID uint, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

// WithUser stores the authenticated user along with its identity.
func WithUser(ctx context.Context, u *store.User) context.Context {
	ctx = WithIdentity(ctx, u.ID, string(u.Role))
	return context.WithValue(ctx, ctxUser, u)
}

func UserID(ctx context.Context) (uint, error) {
	if id, ok := ctx.Value(ctxUserID).(uint); ok && id != 0 {
		return id, nil
	}
	return 0, ErrNoIdentity
}

func Role(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxRole).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrNoIdentity
}

func User(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(ctxUser).(*store.User)
	return u, ok && u != nil
}
