package server

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-forum-accounts/accounts"
	"github.com/rs/zerolog/log"
)

// RegisterGetHandler renders the registration form
func (s *Server) RegisterGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("register.html")
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.page("Registrar")
		data.Form = registerForm{}
		render(w, http.StatusOK, tmpl, data)
	}
}

// RegisterPostHandler creates the account. Existing addresses get the same page as new ones.
func (s *Server) RegisterPostHandler() http.HandlerFunc {
	formTmpl := mustParseTemplate("register.html")
	awaitingTmpl := mustParseTemplate("awaiting_confirmation.html")
	errorTmpl := mustParseTemplate("error.html")

	return func(w http.ResponseWriter, r *http.Request) {
		form := parseRegisterForm(r)
		if err := form.Validate(); err != nil {
			data := s.page("Registrar")
			data.Form = form.withoutPassword()
			data.FieldErrors = fieldErrors(err)
			render(w, http.StatusBadRequest, formTmpl, data)
			return
		}

		result, err := s.accounts.Register(r.Context(), accounts.RegisterInput{
			Username: form.UserName,
			Email:    form.Email,
			FullName: form.FullName,
			Password: form.Password,
		})
		if err != nil {
			s.serverError(w, errorTmpl, err)
			return
		}

		switch result.Outcome {
		case accounts.OutcomeFormErrors:
			data := s.page("Registrar")
			data.Form = form.withoutPassword()
			data.Errors = result.Errors
			render(w, http.StatusOK, formTmpl, data)
		default:
			render(w, http.StatusOK, awaitingTmpl, s.page("Aguardando confirmação"))
		}
	}
}

// ConfirmEmailHandler redeems the link from the confirmation e-mail
func (s *Server) ConfirmEmailHandler() http.HandlerFunc {
	errorTmpl := mustParseTemplate("error.html")
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result, err := s.accounts.ConfirmEmail(r.Context(), q.Get(ParamUserID), q.Get(ParamToken))
		if err != nil {
			s.serverError(w, errorTmpl, err)
			return
		}
		if result.Outcome != accounts.OutcomeHome {
			render(w, http.StatusBadRequest, errorTmpl, s.page("Erro"))
			return
		}
		redirectSuccess(w, r, RouteHome)
	}
}

// ResendConfirmationHandler mails a new confirmation link. The answer never depends on the address.
func (s *Server) ResendConfirmationHandler() http.HandlerFunc {
	awaitingTmpl := mustParseTemplate("awaiting_confirmation.html")
	return func(w http.ResponseWriter, r *http.Request) {
		form := parseEmailForm(r)
		if err := form.Validate(); err != nil {
			data := s.page("Aguardando confirmação")
			data.FieldErrors = fieldErrors(err)
			render(w, http.StatusBadRequest, awaitingTmpl, data)
			return
		}
		if _, err := s.accounts.ResendConfirmation(r.Context(), form.Email); err != nil {
			log.Err(err).Msg("resend confirmation failed")
		}
		render(w, http.StatusOK, awaitingTmpl, s.page("Aguardando confirmação"))
	}
}

// LoginGetHandler renders the login form
func (s *Server) LoginGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.page("Login")
		data.Form = loginForm{}
		render(w, http.StatusOK, tmpl, data)
	}
}

// LoginPostHandler signs the user in and sets the session cookie
func (s *Server) LoginPostHandler() http.HandlerFunc {
	formTmpl := mustParseTemplate("login.html")
	awaitingTmpl := mustParseTemplate("awaiting_confirmation.html")
	errorTmpl := mustParseTemplate("error.html")

	return func(w http.ResponseWriter, r *http.Request) {
		form := parseLoginForm(r)
		data := s.page("Login")
		data.Form = form.withoutPassword()

		if err := form.Validate(); err != nil {
			data.FieldErrors = fieldErrors(err)
			render(w, http.StatusBadRequest, formTmpl, data)
			return
		}

		result, err := s.accounts.Login(r.Context(), accounts.LoginInput{
			Email:      form.Email,
			Password:   form.Password,
			RememberMe: form.RememberMe,
		})
		if err != nil {
			s.serverError(w, errorTmpl, err)
			return
		}

		switch result.Outcome {
		case accounts.OutcomeHome:
			s.setSessionCookie(w, r, result.Session)
			redirectSuccess(w, r, RouteHome)
		case accounts.OutcomeAwaitingConfirmation:
			render(w, http.StatusOK, awaitingTmpl, s.page("Aguardando confirmação"))
		default:
			data.Errors = result.Errors
			render(w, http.StatusOK, formTmpl, data)
		}
	}
}

// LogoffHandler revokes the session and clears the cookie. It never fails.
func (s *Server) LogoffHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.accounts.Logout(r.Context(), s.sessionIDFromRequest(r)); err != nil {
			log.Err(err).Msg("logout failed")
		}
		s.clearSessionCookie(w, r)
		redirectSuccess(w, r, RouteHome)
	}
}

// serverError logs an infrastructure failure and renders the generic error page
func (s *Server) serverError(w http.ResponseWriter, tmpl *template.Template, err error) {
	log.Err(err).Msg("request failed")
	render(w, http.StatusInternalServerError, tmpl, s.page("Erro"))
}
