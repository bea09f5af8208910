// Package auth provides user accounts, password hashing, and token issuance.
package auth

import (
	"context"
	"errors"
	"time"
)

// Role grants a user a capability tier.
type Role string

const (
	// RoleAdmin may manage users and delete any resource.
	RoleAdmin Role = "admin"

	// RoleOperator may create and update resources.
	RoleOperator Role = "operator"

	// RoleViewer has read-only access.
	RoleViewer Role = "viewer"
)

// User is an account that can sign in to the dashboard.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("email already registered")

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	CountUsers(ctx context.Context) (int, error)
}

// CanWrite reports whether the role may create or update resources.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleOperator
}

// CanDelete reports whether the role may delete resources.
func (r Role) CanDelete() bool {
	return r == RoleAdmin
}
