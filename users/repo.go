package users

import (
	"context"
	"time"
)

// UserRepo persists user records. Email lookups are case-insensitive.
//
// Implementations return errors.ErrUserNotFound for unknown users and errors.ErrDuplicateEmail /
// errors.ErrDuplicateUsername when Create would break a uniqueness constraint.
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	SetEmailConfirmed(ctx context.Context, id string, confirmed bool) error

	// SetPasswordHash replaces the credential and clears any lockout state
	SetPasswordHash(ctx context.Context, id, hash string) error

	// RecordAccessFailure atomically increments the failed-attempt counter. When the counter
	// reaches maxAttempts it is reset to zero and the lockout end is set to lockoutEnd.
	// The lockout end in effect after the update is returned (nil when never locked).
	RecordAccessFailure(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (*time.Time, error)

	// ResetAccessFailures zeroes the failed-attempt counter after a successful login
	ResetAccessFailures(ctx context.Context, id string) error

	Count(ctx context.Context) (int, error)
}
