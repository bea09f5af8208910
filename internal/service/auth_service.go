package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsdeck/opsdeck/internal/domain/auth"
	"github.com/opsdeck/opsdeck/internal/domain/cache"
)

// AuthService registers users, verifies credentials, and issues tokens.
// Identity lookups on the hot request path read through the cache with the
// long identity TTL.
type AuthService struct {
	users  auth.UserStore
	tokens *auth.TokenService
	cache  *cache.Cache
	logger *slog.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(users auth.UserStore, tokens *auth.TokenService, c *cache.Cache, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, cache: c, logger: logger}
}

// Register creates a new account. Roles above viewer can only be granted
// by an admin requester, with one exception: the first account on an empty
// store may take any role, so a fresh deployment can bootstrap its admin.
func (s *AuthService) Register(ctx context.Context, email, name, password string, role auth.Role, requester *auth.Claims) (*auth.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email %q", ErrInvalidInput, email)
	}
	if len(password) < auth.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, auth.MinPasswordLength)
	}
	switch role {
	case "":
		role = auth.RoleViewer
	case auth.RoleViewer:
	case auth.RoleOperator, auth.RoleAdmin:
		if err := s.allowElevation(ctx, role, requester); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &auth.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "id", u.ID, "email", u.Email, "role", u.Role)
	return u, nil
}

// allowElevation decides whether a registration may take a role above
// viewer. Only admins grant elevated roles; an empty user store is the
// bootstrap exception.
func (s *AuthService) allowElevation(ctx context.Context, role auth.Role, requester *auth.Claims) error {
	if requester != nil && requester.Role.CanDelete() {
		return nil
	}
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: role %q can only be granted by an admin", ErrInvalidInput, role)
	}
	return nil
}

// Login verifies credentials and returns the user plus a signed token.
// Unknown emails and wrong passwords both come back as
// auth.ErrInvalidCredentials so the response cannot be used to probe for
// registered addresses.
func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, "", auth.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	match, err := auth.VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return nil, "", auth.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("user logged in", "id", u.ID, "email", u.Email)
	return u, token, nil
}

// GetUser resolves a user by ID through the identity cache.
func (s *AuthService) GetUser(ctx context.Context, id string) (*auth.User, error) {
	return cache.GetOrComputeJSON(ctx, s.cache, cache.IdentityKey(id), cache.TTLIdentity,
		func(ctx context.Context) (*auth.User, error) {
			return s.users.GetUser(ctx, id)
		})
}

// VerifyToken validates a bearer token and returns its claims.
func (s *AuthService) VerifyToken(raw string) (*auth.Claims, error) {
	return s.tokens.Verify(raw)
}

// UpdateUser modifies an account and drops its cached identity.
func (s *AuthService) UpdateUser(ctx context.Context, u *auth.User) error {
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.IdentityKey(u.ID))
	return nil
}
