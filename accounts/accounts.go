// Package accounts runs the forum account flows: registration, e-mail confirmation, login,
// logout and password reset. It holds no state of its own; every collaborator is injected.
package accounts

import (
	"context"

	"github.com/jrsteele09/go-forum-accounts/mail"
	"github.com/jrsteele09/go-forum-accounts/sessions"
	"github.com/jrsteele09/go-forum-accounts/token"
	"github.com/jrsteele09/go-forum-accounts/users"
)

// CredentialStore owns user records and passwords. FindByEmail returns errors.ErrUserNotFound
// for unknown addresses, Create and ResetPassword report domain failures as *users.ValidationError.
// ConfirmEmail and ResetPassword redeem their token and report token failures as
// errors.ErrInvalidToken.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Create(ctx context.Context, user *users.User, password string) error
	CheckPassword(ctx context.Context, user *users.User, password string) bool
	ConfirmEmail(ctx context.Context, userID, token string) error
	ResetPassword(ctx context.Context, userID, token, newPassword string) error
}

// TokenIssuer mints the tokens mailed in callback links, bound to the user's security stamp
type TokenIssuer interface {
	Issue(ctx context.Context, purpose token.Purpose, userID, stamp string) (string, error)
}

// MailDispatcher is fire-and-forget, delivery failures never reach the caller
type MailDispatcher interface {
	Dispatch(ctx context.Context, msg mail.Message)
}

type SessionAuthority interface {
	SignIn(ctx context.Context, user *users.User, password string, persistent, lockoutAware bool) (sessions.SignInResult, *sessions.Session, error)
	SignOut(ctx context.Context, sessionID string) error
}

// LinkBuilder turns (user id, token) pairs into absolute callback URLs
type LinkBuilder interface {
	ConfirmEmailURL(userID, token string) string
	ResetPasswordURL(userID, token string) string
}

var (
	_ CredentialStore  = (*users.Manager)(nil)
	_ TokenIssuer      = (*token.Issuer)(nil)
	_ MailDispatcher   = (*mail.Dispatcher)(nil)
	_ SessionAuthority = (*sessions.Authority)(nil)
)
