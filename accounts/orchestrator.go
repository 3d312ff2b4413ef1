package accounts

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/go-forum-accounts/internal/errors"
	"github.com/jrsteele09/go-forum-accounts/sessions"
	"github.com/jrsteele09/go-forum-accounts/token"
	"github.com/jrsteele09/go-forum-accounts/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const defaultAppName = "Forum ByteBank"

type Deps struct {
	Credentials CredentialStore
	Tokens      TokenIssuer
	Mail        MailDispatcher
	Sessions    SessionAuthority
	Links       LinkBuilder
	AppName     string // used in mail subjects
}

type Orchestrator struct {
	credentials CredentialStore
	tokens      TokenIssuer
	mail        MailDispatcher
	sessions    SessionAuthority
	links       LinkBuilder
	appName     string
}

func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Credentials == nil:
		return nil, errors.New("[accounts.New] credential store is required")
	case deps.Tokens == nil:
		return nil, errors.New("[accounts.New] token issuer is required")
	case deps.Mail == nil:
		return nil, errors.New("[accounts.New] mail dispatcher is required")
	case deps.Sessions == nil:
		return nil, errors.New("[accounts.New] session authority is required")
	case deps.Links == nil:
		return nil, errors.New("[accounts.New] link builder is required")
	}
	appName := deps.AppName
	if appName == "" {
		appName = defaultAppName
	}
	return &Orchestrator{
		credentials: deps.Credentials,
		tokens:      deps.Tokens,
		mail:        deps.Mail,
		sessions:    deps.Sessions,
		links:       deps.Links,
		appName:     appName,
	}, nil
}

type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Register creates an unconfirmed account and mails the confirmation link. An address that is
// already registered gets the same answer and nothing else happens.
func (o *Orchestrator) Register(ctx context.Context, in RegisterInput) (Result, error) {
	existing, err := o.findByEmail(ctx, in.Email)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Orchestrator.Register] FindByEmail")
	}
	if existing != nil {
		log.Info().Str("user_id", existing.ID).Msg("registration for an existing address ignored")
		return outcome(OutcomeAwaitingConfirmation), nil
	}

	user := &users.User{
		Username:       in.Username,
		Email:          in.Email,
		FullName:       in.FullName,
		EmailConfirmed: false,
	}
	if err := o.credentials.Create(ctx, user, in.Password); err != nil {
		var verr *users.ValidationError
		if errors.As(err, &verr) {
			return formErrors(OutcomeFormErrors, verr.Reasons...), nil
		}
		return Result{}, errors.Wrap(err, "[Orchestrator.Register] Create")
	}
	log.Info().Str("user_id", user.ID).Msg("user registered")

	if err := o.sendConfirmation(ctx, user); err != nil {
		return Result{}, errors.Wrap(err, "[Orchestrator.Register] sendConfirmation")
	}
	return outcome(OutcomeAwaitingConfirmation), nil
}

// ResendConfirmation mails a fresh confirmation link to an unconfirmed account. Unknown and
// already confirmed addresses get the same answer.
func (o *Orchestrator) ResendConfirmation(ctx context.Context, email string) (Result, error) {
	user, err := o.findByEmail(ctx, email)
	if err != nil {
		log.Err(err).Msg("resend confirmation lookup failed")
		return outcome(OutcomeAwaitingConfirmation), nil
	}
	if user != nil && !user.EmailConfirmed {
		if err := o.sendConfirmation(ctx, user); err != nil {
			log.Err(err).Str("user_id", user.ID).Msg("resend confirmation failed")
		}
	}
	return outcome(OutcomeAwaitingConfirmation), nil
}

// ConfirmEmail redeems a confirmation link. Every token problem gives the same failure.
func (o *Orchestrator) ConfirmEmail(ctx context.Context, userID, rawToken string) (Result, error) {
	if userID == "" || rawToken == "" {
		return outcome(OutcomeFailed), nil
	}

	if err := o.credentials.ConfirmEmail(ctx, userID, rawToken); err != nil {
		if errors.Is(err, apperrors.ErrInvalidToken) {
			log.Info().Str("user_id", userID).Msg("confirmation token rejected")
			return outcome(OutcomeFailed), nil
		}
		return Result{}, errors.Wrap(err, "[Orchestrator.ConfirmEmail] ConfirmEmail")
	}
	log.Info().Str("user_id", userID).Msg("email confirmed")
	return outcome(OutcomeHome), nil
}

type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// Login signs a confirmed user in. A locked account is reported as locked whatever password
// was given, and an unconfirmed account never keeps its session.
func (o *Orchestrator) Login(ctx context.Context, in LoginInput) (Result, error) {
	user, err := o.findByEmail(ctx, in.Email)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Orchestrator.Login] FindByEmail")
	}
	if user == nil {
		return formErrors(OutcomeInvalidCredentials, MsgInvalidCredentials), nil
	}

	result, session, err := o.sessions.SignIn(ctx, user, in.Password, in.RememberMe, true)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Orchestrator.Login] SignIn")
	}

	switch result {
	case sessions.SignInSuccess:
		if !user.EmailConfirmed {
			if err := o.sessions.SignOut(ctx, session.ID); err != nil {
				return Result{}, errors.Wrap(err, "[Orchestrator.Login] SignOut")
			}
			log.Info().Str("user_id", user.ID).Msg("login refused, email not confirmed")
			return outcome(OutcomeAwaitingConfirmation), nil
		}
		log.Info().Str("user_id", user.ID).Bool("persistent", session.Persistent).Msg("user logged in")
		return Result{Outcome: OutcomeHome, Session: session}, nil
	case sessions.SignInLockedOut:
		return formErrors(OutcomeLockedOut, MsgLockedOut), nil
	default:
		return formErrors(OutcomeInvalidCredentials, MsgInvalidCredentials), nil
	}
}

// Logout revokes the session, if there is one
func (o *Orchestrator) Logout(ctx context.Context, sessionID string) (Result, error) {
	if err := o.sessions.SignOut(ctx, sessionID); err != nil {
		log.Err(err).Msg("sign out failed")
	}
	return outcome(OutcomeHome), nil
}

// ForgotPassword mails reset instructions when the address belongs to an account. The answer
// is the same either way, lookup and token failures included.
func (o *Orchestrator) ForgotPassword(ctx context.Context, email string) (Result, error) {
	user, err := o.findByEmail(ctx, email)
	if err != nil {
		log.Err(err).Msg("forgot password lookup failed")
		return outcome(OutcomeResetEmailSent), nil
	}
	if user == nil {
		return outcome(OutcomeResetEmailSent), nil
	}

	raw, err := o.tokens.Issue(ctx, token.PurposeResetPassword, user.ID, user.SecurityStamp())
	if err != nil {
		log.Err(err).Str("user_id", user.ID).Msg("reset token not issued")
		return outcome(OutcomeResetEmailSent), nil
	}
	o.mail.Dispatch(ctx, resetPasswordMessage(o.appName, user.Email, o.links.ResetPasswordURL(user.ID, raw)))
	log.Info().Str("user_id", user.ID).Msg("password reset requested")
	return outcome(OutcomeResetEmailSent), nil
}

// ResetPassword applies a new password with a reset token. It does not sign the user in.
func (o *Orchestrator) ResetPassword(ctx context.Context, userID, rawToken, newPassword string) (Result, error) {
	if userID == "" || rawToken == "" {
		return outcome(OutcomeFailed), nil
	}

	err := o.credentials.ResetPassword(ctx, userID, rawToken, newPassword)
	if err == nil {
		log.Info().Str("user_id", userID).Msg("password reset")
		return outcome(OutcomeHome), nil
	}

	var verr *users.ValidationError
	switch {
	case errors.As(err, &verr):
		return formErrors(OutcomeFormErrors, verr.Reasons...), nil
	case errors.Is(err, apperrors.ErrInvalidToken):
		return formErrors(OutcomeFormErrors, MsgInvalidToken), nil
	default:
		return Result{}, errors.Wrap(err, "[Orchestrator.ResetPassword] ResetPassword")
	}
}

func (o *Orchestrator) sendConfirmation(ctx context.Context, user *users.User) error {
	raw, err := o.tokens.Issue(ctx, token.PurposeConfirmEmail, user.ID, user.SecurityStamp())
	if err != nil {
		return err
	}
	o.mail.Dispatch(ctx, confirmationMessage(o.appName, user.Email, o.links.ConfirmEmailURL(user.ID, raw)))
	return nil
}

// findByEmail maps "not found" to a nil user
func (o *Orchestrator) findByEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := o.credentials.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
