package users

import "strings"

// ValidationError carries domain failures from the credential store (duplicate email or
// username, weak password). Every reason is meant to be shown to the user, none is tied
// to a form field.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "user validation failed: " + strings.Join(e.Reasons, "; ")
}

func (e *ValidationError) add(reason string) {
	e.Reasons = append(e.Reasons, reason)
}

func (e *ValidationError) empty() bool {
	return e == nil || len(e.Reasons) == 0
}
