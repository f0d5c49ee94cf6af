package main

import (
	"context"
	"fmt"

	"callrounded-manager/internal/auth"
	"callrounded-manager/internal/config"
	"callrounded-manager/internal/store"
	"callrounded-manager/pkg/logger"
)

// bootstrapOwner makes sure the configured owner exists as an active admin.
// With OWNER_OPEN_ID the row is keyed by OpenID, otherwise by email.
func bootstrapOwner(ctx context.Context, st *store.Store, o config.OwnerConfig) error {
	if !st.Enabled() || (o.OpenID == "" && o.Email == "") {
		return nil
	}
	if o.Email == "" {
		return st.UpsertUser(ctx, store.User{OpenID: o.OpenID, Name: o.Name, Role: store.RoleAdmin})
	}

	hash, err := auth.HashPassword(o.Password)
	if err != nil {
		return err
	}

	var u *store.User
	if o.OpenID != "" {
		err := st.UpsertUser(ctx, store.User{OpenID: o.OpenID, Email: o.Email, Name: o.Name, LoginMethod: "password", Role: store.RoleAdmin})
		if err != nil {
			return fmt.Errorf("upsert owner: %w", err)
		}
		u, err = st.GetUserByOpenID(ctx, o.OpenID)
		if err != nil {
			return err
		}
	} else {
		u, err = st.GetUserByEmail(ctx, o.Email)
		if err != nil {
			return err
		}
		if u == nil {
			created, err := st.CreateUser(ctx, store.NewUser{Email: o.Email, Name: o.Name, Role: store.RoleAdmin, PasswordHash: hash})
			if err != nil {
				return fmt.Errorf("create owner: %w", err)
			}
			logger.From(ctx).Info("owner account created", "user_id", created.ID)
			return nil
		}
	}
	if u == nil {
		return fmt.Errorf("owner %q missing after upsert", o.OpenID)
	}

	role, active := store.RoleAdmin, true
	_, err = st.UpdateUser(ctx, u.ID, store.UserPatch{Role: &role, IsActive: &active, PasswordHash: &hash})
	return err
}
