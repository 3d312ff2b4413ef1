package users

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/jrsteele09/go-forum-accounts/token"
	"github.com/pkg/errors"
)

// TokenRedeemer redeems single-use tokens, running apply once the token is spent.
// token.Issuer implements it.
type TokenRedeemer interface {
	Redeem(ctx context.Context, purpose token.Purpose, userID, stamp, raw string, apply func(context.Context) error) error
}

// Manager is the credential store: it owns the password policy, hashing, uniqueness rules
// and the password reset transaction on top of a UserRepo.
type Manager struct {
	repo   UserRepo
	tokens TokenRedeemer
	hash   func(password string) (string, error)
}

type ManagerOption func(*Manager)

// WithHasher replaces bcrypt, tests use it to keep hashing cheap
func WithHasher(hash func(password string) (string, error)) ManagerOption {
	return func(m *Manager) {
		m.hash = hash
	}
}

func NewManager(repo UserRepo, tokens TokenRedeemer, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] user repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewManager] token redeemer is required")
	}
	m := &Manager{
		repo:   repo,
		tokens: tokens,
		hash:   HashPassword,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Manager) FindByEmail(ctx context.Context, email string) (*User, error) {
	return m.repo.GetByEmail(ctx, email)
}

func (m *Manager) FindByID(ctx context.Context, id string) (*User, error) {
	return m.repo.GetByID(ctx, id)
}

// Create validates and stores a new user with the given password. Domain failures are
// reported together in a *ValidationError.
func (m *Manager) Create(ctx context.Context, user *User, password string) error {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.TrimSpace(user.Email)

	verr := &ValidationError{}
	if user.Username == "" {
		verr.add("username is required")
	}
	if user.Email == "" {
		verr.add("email is required")
	}
	if user.Username != "" {
		if _, err := m.repo.GetByUsername(ctx, user.Username); err == nil {
			verr.add(fmt.Sprintf("username %s is already taken", user.Username))
		} else if !errors.Is(err, apperrors.ErrUserNotFound) {
			return errors.Wrap(err, "[Manager.Create] GetByUsername")
		}
	}
	for _, v := range PasswordPolicyViolations(password) {
		verr.add(v)
	}
	if !verr.empty() {
		return verr
	}

	hash, err := m.hash(password)
	if err != nil {
		return errors.Wrap(err, "[Manager.Create] hash")
	}
	user.PasswordHash = hash

	if err := m.repo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicateEmail):
			return &ValidationError{Reasons: []string{fmt.Sprintf("email %s is already taken", user.Email)}}
		case errors.Is(err, apperrors.ErrDuplicateUsername):
			return &ValidationError{Reasons: []string{fmt.Sprintf("username %s is already taken", user.Username)}}
		}
		return errors.Wrap(err, "[Manager.Create] repo.Create")
	}
	return nil
}

func (m *Manager) CheckPassword(_ context.Context, user *User, password string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return CheckPasswordHash(password, user.PasswordHash)
}

// ConfirmEmail redeems a confirmation token and marks the address confirmed. Unknown users and
// token failures match errors.ErrInvalidToken. A failed store write leaves the token usable.
func (m *Manager) ConfirmEmail(ctx context.Context, userID, rawToken string) error {
	user, err := m.tokenOwner(ctx, userID)
	if err != nil {
		return err
	}
	return m.tokens.Redeem(ctx, token.PurposeConfirmEmail, user.ID, user.SecurityStamp(), rawToken, func(ctx context.Context) error {
		if err := m.repo.SetEmailConfirmed(ctx, user.ID, true); err != nil {
			return errors.Wrap(err, "[Manager.ConfirmEmail] SetEmailConfirmed")
		}
		return nil
	})
}

// ResetPassword redeems a reset token and stores the new credential. The password policy is
// checked before the token is touched so a rejected password leaves the token usable. The new
// hash moves the security stamp on, which voids every other outstanding token of the user.
// Token failures match errors.ErrInvalidToken.
func (m *Manager) ResetPassword(ctx context.Context, userID, rawToken, newPassword string) error {
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	user, err := m.tokenOwner(ctx, userID)
	if err != nil {
		return err
	}

	hash, err := m.hash(newPassword)
	if err != nil {
		return errors.Wrap(err, "[Manager.ResetPassword] hash")
	}

	return m.tokens.Redeem(ctx, token.PurposeResetPassword, user.ID, user.SecurityStamp(), rawToken, func(ctx context.Context) error {
		if err := m.repo.SetPasswordHash(ctx, user.ID, hash); err != nil {
			return errors.Wrap(err, "[Manager.ResetPassword] SetPasswordHash")
		}
		return nil
	})
}

// tokenOwner loads the user a token claims to belong to. Unknown ids are token failures.
func (m *Manager) tokenOwner(ctx context.Context, userID string) (*User, error) {
	user, err := m.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, errors.Wrap(err, "[Manager.tokenOwner] GetByID")
	}
	return user, nil
}
