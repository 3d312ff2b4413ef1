package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/jrsteele09/go-forum-accounts/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

// FakeUserRepo keeps users in memory. It is used by the tests and when no database is configured.
type FakeUserRepo struct {
	users       map[string]*users.User
	emailIds    map[string]string // normalized email to user id
	usernameIds map[string]string // username to user id
	lock        sync.RWMutex
	nowFunc     func() time.Time
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		emailIds:    make(map[string]string),
		usernameIds: make(map[string]string),
		nowFunc:     time.Now,
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := users.NormalizeEmail(user.Email)
	if _, ok := ur.emailIds[email]; ok {
		return apperrors.ErrDuplicateEmail
	}
	if _, ok := ur.usernameIds[user.Username]; ok {
		return apperrors.ErrDuplicateUsername
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := ur.nowFunc()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIds[email] = user.ID
	ur.usernameIds[user.Username] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.copyOf(id)
}

func (ur *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.copyOf(ur.emailIds[users.NormalizeEmail(email)])
}

func (ur *FakeUserRepo) GetByUsername(_ context.Context, username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.copyOf(ur.usernameIds[username])
}

func (ur *FakeUserRepo) SetEmailConfirmed(_ context.Context, id string, confirmed bool) error {
	return ur.update(id, func(u *users.User) {
		u.EmailConfirmed = confirmed
	})
}

func (ur *FakeUserRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	return ur.update(id, func(u *users.User) {
		u.PasswordHash = hash
		u.AccessFailedCount = 0
		u.LockoutEnd = nil
	})
}

func (ur *FakeUserRepo) RecordAccessFailure(_ context.Context, id string, maxAttempts int, lockoutEnd time.Time) (*time.Time, error) {
	var end *time.Time
	err := ur.update(id, func(u *users.User) {
		u.AccessFailedCount++
		if u.AccessFailedCount >= maxAttempts {
			u.AccessFailedCount = 0
			u.LockoutEnd = &lockoutEnd
		}
		if u.LockoutEnd != nil {
			t := *u.LockoutEnd
			end = &t
		}
	})
	return end, err
}

func (ur *FakeUserRepo) ResetAccessFailures(_ context.Context, id string) error {
	return ur.update(id, func(u *users.User) {
		u.AccessFailedCount = 0
	})
}

func (ur *FakeUserRepo) Count(_ context.Context) (int, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users), nil
}

func (ur *FakeUserRepo) update(id string, fn func(u *users.User)) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	u, ok := ur.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = ur.nowFunc()
	return nil
}

// copyOf hands out copies so callers cannot mutate stored state. Caller holds the lock.
func (ur *FakeUserRepo) copyOf(id string) (*users.User, error) {
	u, ok := ur.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	c := *u
	if u.LockoutEnd != nil {
		t := *u.LockoutEnd
		c.LockoutEnd = &t
	}
	return &c, nil
}
