package rbac

import "callrounded-manager/internal/store"

// Role names. These match store.UserRole values.
const (
	RoleUser  = string(store.RoleUser)
	RoleAdmin = string(store.RoleAdmin)
)

func IsAdmin(role string) bool { return role == RoleAdmin }
