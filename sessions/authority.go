package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/jrsteele09/go-forum-accounts/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CredentialChecker verifies a password against a user record
type CredentialChecker interface {
	CheckPassword(ctx context.Context, user *users.User, password string) bool
}

// LockoutStore keeps the failed-attempt counters. users.UserRepo implements it.
type LockoutStore interface {
	RecordAccessFailure(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (*time.Time, error)
	ResetAccessFailures(ctx context.Context, id string) error
}

// Policy carries the lockout and lifetime settings. config.Config implements it.
type Policy interface {
	GetLockoutMaxAttempts() int
	GetLockoutDuration() time.Duration
	GetSessionTTL() time.Duration
	GetPersistentSessionTTL() time.Duration
}

// Authority signs users in and out. It owns the lockout rule: once an account is locked
// the password is not even checked until the lockout ends.
type Authority struct {
	repo        Repo
	credentials CredentialChecker
	lockout     LockoutStore
	policy      Policy
	nowFunc     func() time.Time
}

type AuthorityOption func(*Authority)

func WithNowFunc(nowFunc func() time.Time) AuthorityOption {
	return func(a *Authority) {
		a.nowFunc = nowFunc
	}
}

func NewAuthority(repo Repo, credentials CredentialChecker, lockout LockoutStore, policy Policy, options ...AuthorityOption) (*Authority, error) {
	if repo == nil || credentials == nil || lockout == nil || policy == nil {
		return nil, errors.New("[NewAuthority] repo, credentials, lockout store and policy are required")
	}
	if policy.GetLockoutMaxAttempts() <= 0 {
		return nil, errors.New("[NewAuthority] lockout max attempts must be positive")
	}
	a := &Authority{
		repo:        repo,
		credentials: credentials,
		lockout:     lockout,
		policy:      policy,
		nowFunc:     time.Now,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// SignIn checks the password and, on success, issues a session. With lockoutAware set a failed
// attempt counts towards the lockout, and the attempt that reaches the threshold already
// reports SignInLockedOut.
func (a *Authority) SignIn(ctx context.Context, user *users.User, password string, persistent, lockoutAware bool) (SignInResult, *Session, error) {
	if user == nil {
		return SignInFailure, nil, nil
	}
	now := a.nowFunc()

	if lockoutAware && user.IsLockedOut(now) {
		return SignInLockedOut, nil, nil
	}

	if !a.credentials.CheckPassword(ctx, user, password) {
		if !lockoutAware {
			return SignInFailure, nil, nil
		}
		end, err := a.lockout.RecordAccessFailure(ctx, user.ID, a.policy.GetLockoutMaxAttempts(), now.Add(a.policy.GetLockoutDuration()))
		if err != nil {
			return SignInFailure, nil, errors.Wrap(err, "[Authority.SignIn] RecordAccessFailure")
		}
		if end != nil && end.After(now) {
			log.Info().Str("user_id", user.ID).Time("lockout_end", *end).Msg("account locked out")
			return SignInLockedOut, nil, nil
		}
		return SignInFailure, nil, nil
	}

	if lockoutAware && user.AccessFailedCount > 0 {
		if err := a.lockout.ResetAccessFailures(ctx, user.ID); err != nil {
			return SignInFailure, nil, errors.Wrap(err, "[Authority.SignIn] ResetAccessFailures")
		}
	}

	ttl := a.policy.GetSessionTTL()
	if persistent {
		ttl = a.policy.GetPersistentSessionTTL()
	}
	session := &Session{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		Persistent: persistent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := a.repo.Upsert(ctx, *session); err != nil {
		return SignInFailure, nil, errors.Wrap(err, "[Authority.SignIn] Upsert")
	}
	return SignInSuccess, session, nil
}

// SignOut revokes the session. Unknown and empty IDs are ignored.
func (a *Authority) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := a.repo.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "[Authority.SignOut] Delete")
	}
	return nil
}

// Current resolves a session cookie value. Expired sessions are removed and reported as
// errors.ErrSessionExpired.
func (a *Authority) Current(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	session, err := a.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Expired(a.nowFunc()) {
		if err := a.repo.Delete(ctx, sessionID); err != nil {
			log.Err(err).Msg("failed to delete expired session")
		}
		return nil, apperrors.ErrSessionExpired
	}
	return &session, nil
}
