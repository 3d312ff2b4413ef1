package errors

import "errors"

// Common error types for the account service
var (
	// User errors
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")

	// Token errors
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrTokenConsumed   = errors.New("token already used")
	ErrTokenSuperseded = errors.New("token superseded by a credential change")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// Mail errors
	ErrMailQueueFull = errors.New("mail queue full")
	ErrMailClosed    = errors.New("mail dispatcher closed")
)
