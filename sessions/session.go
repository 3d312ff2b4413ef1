package sessions

import "time"

// Session is an authenticated browser session. The ID travels in the session cookie.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Persistent bool      `json:"persistent"` // "remember me", the cookie outlives the browser
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SignInResult is the outcome of a sign-in attempt
type SignInResult int

const (
	SignInFailure SignInResult = iota
	SignInSuccess
	SignInLockedOut
)

func (r SignInResult) String() string {
	switch r {
	case SignInSuccess:
		return "success"
	case SignInLockedOut:
		return "locked_out"
	default:
		return "failure"
	}
}
