package users

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// State is a user's position in the account lifecycle
type State string

const (
	StateUnregistered  State = "unregistered"
	StateUnconfirmed   State = "registered_unconfirmed"
	StateConfirmed     State = "confirmed"
	StateAuthenticated State = "authenticated_session"
)

type User struct {
	ID                string     `json:"id,omitempty"`          // Unique, stable identifier (UUID)
	Username          string     `json:"username,omitempty"`    // Unique username
	Email             string     `json:"email,omitempty"`       // Unique email address
	FullName          string     `json:"full_name,omitempty"`   // Display name
	PasswordHash      string     `json:"-"`                     // bcrypt hash - never serialize
	EmailConfirmed    bool       `json:"email_confirmed"`       // Set once a confirmation token is consumed
	LockoutEnd        *time.Time `json:"lockout_end,omitempty"` // Logins are refused until this instant
	AccessFailedCount int        `json:"-"`                     // Consecutive failed logins since the last success or lockout
	CreatedAt         time.Time  `json:"created_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at,omitempty"`
}

// IsLockedOut reports whether the lockout window is still open at now
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// State maps the stored flags onto the lifecycle. hasSession is supplied by the caller since
// sessions are not part of the user record.
func (u *User) State(hasSession bool) State {
	switch {
	case u == nil:
		return StateUnregistered
	case !u.EmailConfirmed:
		return StateUnconfirmed
	case hasSession:
		return StateAuthenticated
	default:
		return StateConfirmed
	}
}

// SecurityStamp changes whenever the credential changes. Verification tokens carry it so a
// password change voids every token issued before it.
func (u *User) SecurityStamp() string {
	sum := sha256.Sum256([]byte(u.ID + ":" + u.PasswordHash))
	return hex.EncodeToString(sum[:16])
}

// NormalizeEmail is the lookup key used by every repository
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PasswordPolicyViolations checks the password against the store's requirements and returns every
// failed rule, so that all of them can be shown at once:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
// - Contains at least one symbol
// - At most MaxPasswordBytes bytes, counted in UTF-8
func PasswordPolicyViolations(password string) []string {
	var (
		violations []string
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSymbol  bool
	)

	if len(password) < 8 {
		violations = append(violations, "password must be at least 8 characters long")
	}
	if len(password) > MaxPasswordBytes {
		violations = append(violations, "password must be at most 72 bytes long")
	}

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSymbol = true
		}
	}

	if !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if !hasNumber {
		violations = append(violations, "password must contain at least one number")
	}
	if !hasSymbol {
		violations = append(violations, "password must contain at least one symbol")
	}
	return violations
}

// ValidatePasswordStrength returns a *ValidationError listing every violated rule
func ValidatePasswordStrength(password string) error {
	if v := PasswordPolicyViolations(password); len(v) > 0 {
		return &ValidationError{Reasons: v}
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
