package config

import "time"

type SecurityConfig interface {
	GetTokenSecret() string
	GetConfirmEmailTokenTTL() time.Duration
	GetResetPasswordTokenTTL() time.Duration
	GetLockoutMaxAttempts() int
	GetLockoutDuration() time.Duration
	GetSessionTTL() time.Duration
	GetPersistentSessionTTL() time.Duration
	GetSessionCookieName() string
}

var _ SecurityConfig = (*Config)(nil)

func (c *Config) GetTokenSecret() string {
	return c.Security.TokenSecret
}

func (c *Config) GetConfirmEmailTokenTTL() time.Duration {
	return c.Security.ConfirmEmailTokenTTL
}

func (c *Config) GetResetPasswordTokenTTL() time.Duration {
	return c.Security.ResetPasswordTokenTTL
}

// GetLockoutMaxAttempts is the number of consecutive failed logins that locks an account
func (c *Config) GetLockoutMaxAttempts() int {
	return c.Security.LockoutMaxAttempts
}

func (c *Config) GetLockoutDuration() time.Duration {
	return c.Security.LockoutDuration
}

func (c *Config) GetSessionTTL() time.Duration {
	return c.Security.SessionTTL
}

// GetPersistentSessionTTL applies to "remember me" sessions
func (c *Config) GetPersistentSessionTTL() time.Duration {
	return c.Security.PersistentSessionTTL
}

func (c *Config) GetSessionCookieName() string {
	return c.Security.SessionCookieName
}
