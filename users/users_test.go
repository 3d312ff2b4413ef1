package users_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-forum-accounts/users"
	"github.com/stretchr/testify/require"
)

func TestPasswordPolicyViolations(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantLen  int
	}{
		{"strong", "Secret123!", 0},
		{"too short", "Se1!", 1},
		{"no upper", "secret123!", 1},
		{"no lower", "SECRET123!", 1},
		{"no digit", "SecretPass!", 1},
		{"no symbol", "Secret1234", 1},
		{"empty", "", 5},
		{"at bcrypt limit", "Aa1!" + strings.Repeat("x", 68), 0},
		{"over bcrypt limit", "Aa1!" + strings.Repeat("x", 69), 1},
		{"multibyte over limit", "Aa1!" + strings.Repeat("é", 35), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, users.PasswordPolicyViolations(tt.password), tt.wantLen)
		})
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Secret123!"))

	err := users.ValidatePasswordStrength("weak")
	var verr *users.ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Reasons)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := users.HashPassword("Secret123!")
	require.NoError(t, err)
	require.NotEqual(t, "Secret123!", hash)

	require.True(t, users.CheckPasswordHash("Secret123!", hash))
	require.False(t, users.CheckPasswordHash("Secret123?", hash))
}

func TestUser_State(t *testing.T) {
	var none *users.User
	require.Equal(t, users.StateUnregistered, none.State(false))

	u := &users.User{}
	require.Equal(t, users.StateUnconfirmed, u.State(false))
	require.Equal(t, users.StateUnconfirmed, u.State(true), "an unconfirmed user never counts as authenticated")

	u.EmailConfirmed = true
	require.Equal(t, users.StateConfirmed, u.State(false))
	require.Equal(t, users.StateAuthenticated, u.State(true))
}

func TestUser_IsLockedOut(t *testing.T) {
	now := time.Now()
	u := &users.User{}
	require.False(t, u.IsLockedOut(now))

	end := now.Add(time.Minute)
	u.LockoutEnd = &end
	require.True(t, u.IsLockedOut(now))
	require.False(t, u.IsLockedOut(now.Add(2*time.Minute)))
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", users.NormalizeEmail("  Alice@Example.COM "))
}

func TestSecurityStampFollowsPasswordHash(t *testing.T) {
	u := &users.User{ID: "u1", PasswordHash: "hash-1"}
	first := u.SecurityStamp()
	require.Equal(t, first, u.SecurityStamp())

	u.PasswordHash = "hash-2"
	require.NotEqual(t, first, u.SecurityStamp())

	other := &users.User{ID: "u2", PasswordHash: "hash-1"}
	require.NotEqual(t, first, other.SecurityStamp())
}
