package accounts

import "github.com/jrsteele09/go-forum-accounts/sessions"

// Outcome tells the HTTP layer which view or redirect answers a flow
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeHome
	OutcomeAwaitingConfirmation
	OutcomeInvalidCredentials
	OutcomeLockedOut
	OutcomeResetEmailSent
	OutcomeFormErrors
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "home"
	case OutcomeAwaitingConfirmation:
		return "awaiting_confirmation"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeLockedOut:
		return "locked_out"
	case OutcomeResetEmailSent:
		return "reset_email_sent"
	case OutcomeFormErrors:
		return "form_errors"
	default:
		return "failed"
	}
}

// User-facing messages. Security-sensitive failures share one message each.
const (
	MsgInvalidCredentials = "credenciais invalidas"
	MsgLockedOut          = "A conta está bloqueada"
	MsgInvalidToken       = "O link utilizado é inválido ou expirou"
)

type Result struct {
	Outcome Outcome
	Errors  []string          // shown above the form, not tied to a field
	Session *sessions.Session // set when a login succeeded
}

func outcome(o Outcome) Result {
	return Result{Outcome: o}
}

func formErrors(o Outcome, reasons ...string) Result {
	return Result{Outcome: o, Errors: reasons}
}
