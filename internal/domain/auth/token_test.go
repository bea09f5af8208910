package auth

import (
	"testing"
	"time"
)

func newTestTokenService() (*TokenService, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	svc := NewTokenService("test-secret-at-least-32-bytes-long!", time.Hour)
	svc.SetClock(func() time.Time { return now })
	return svc, &now
}

func testUser() *User {
	return &User{
		ID:    "u-1",
		Email: "ops@example.com",
		Name:  "Ops Admin",
		Role:  RoleAdmin,
	}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc, _ := newTestTokenService()

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "u-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "u-1")
	}
	if claims.Email != "ops@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "ops@example.com")
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, RoleAdmin)
	}
}

func TestTokenService_ExpiredToken(t *testing.T) {
	svc, now := newTestTokenService()

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	*now = now.Add(2 * time.Hour)
	if _, err := svc.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify expired = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	svc, _ := newTestTokenService()
	other := NewTokenService("a-completely-different-signing-key", time.Hour)

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := other.Verify(token); err != ErrInvalidToken {
		t.Errorf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc, _ := newTestTokenService()
	for _, raw := range []string{"", "not.a.jwt", "xxxx"} {
		if _, err := svc.Verify(raw); err != ErrInvalidToken {
			t.Errorf("Verify(%q) = %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestRoleCapabilities(t *testing.T) {
	tests := []struct {
		role      Role
		canWrite  bool
		canDelete bool
	}{
		{RoleAdmin, true, true},
		{RoleOperator, true, false},
		{RoleViewer, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.CanWrite(); got != tt.canWrite {
				t.Errorf("CanWrite = %v, want %v", got, tt.canWrite)
			}
			if got := tt.role.CanDelete(); got != tt.canDelete {
				t.Errorf("CanDelete = %v, want %v", got, tt.canDelete)
			}
		})
	}
}
