package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/opsdeck/opsdeck/internal/domain/auth"
)

// UserStore implements auth.UserStore.
type UserStore struct {
	db *DB
}

// NewUserStore creates a user store over the shared handle.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// CreateUser implements auth.UserStore. A duplicate email maps to
// auth.ErrEmailTaken.
func (s *UserStore) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Role, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser implements auth.UserStore.
func (s *UserStore) GetUser(ctx context.Context, id string) (*auth.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail implements auth.UserStore.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *UserStore) getUser(ctx context.Context, column, value string) (*auth.User, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, password_hash, created_at FROM users WHERE `+column+` = ?`, value)

	var u auth.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

// CountUsers implements auth.UserStore.
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UpdateUser implements auth.UserStore.
func (s *UserStore) UpdateUser(ctx context.Context, u *auth.User) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE users SET email = ?, name = ?, role = ?, password_hash = ? WHERE id = ?`,
		u.Email, u.Name, u.Role, u.PasswordHash, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
// modernc.org/sqlite surfaces constraint failures in the error text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Compile-time interface verification.
var _ auth.UserStore = (*UserStore)(nil)
