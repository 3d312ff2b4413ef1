package server

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-forum-accounts/accounts"
	"github.com/jrsteele09/go-forum-accounts/users"
)

// ForgotPasswordGetHandler renders the forgot-password page
func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("forgot_password.html")
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.page("Esqueci a senha")
		data.Form = emailForm{}
		render(w, http.StatusOK, tmpl, data)
	}
}

// ForgotPasswordPostHandler mails reset instructions. The page is the same whether or not the
// address has an account.
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	formTmpl := mustParseTemplate("forgot_password.html")
	sentTmpl := mustParseTemplate("reset_email_sent.html")
	errorTmpl := mustParseTemplate("error.html")

	return func(w http.ResponseWriter, r *http.Request) {
		form := parseEmailForm(r)
		if err := form.Validate(); err != nil {
			data := s.page("Esqueci a senha")
			data.Form = form
			data.FieldErrors = fieldErrors(err)
			render(w, http.StatusBadRequest, formTmpl, data)
			return
		}

		if _, err := s.accounts.ForgotPassword(r.Context(), form.Email); err != nil {
			s.serverError(w, errorTmpl, err)
			return
		}
		render(w, http.StatusOK, sentTmpl, s.page("E-mail enviado"))
	}
}

// ResetPasswordGetHandler renders the new-password form for a reset link
func (s *Server) ResetPasswordGetHandler() http.HandlerFunc {
	formTmpl := mustParseTemplate("reset_password.html")
	errorTmpl := mustParseTemplate("error.html")

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		userID, token := q.Get(ParamUserID), q.Get(ParamToken)
		if userID == "" || token == "" {
			render(w, http.StatusBadRequest, errorTmpl, s.page("Erro"))
			return
		}
		data := s.page("Alterar senha")
		data.UserID = userID
		data.Token = token
		render(w, http.StatusOK, formTmpl, data)
	}
}

// ResetPasswordPostHandler applies the new password. The user is sent home, not signed in.
func (s *Server) ResetPasswordPostHandler() http.HandlerFunc {
	formTmpl := mustParseTemplate("reset_password.html")
	errorTmpl := mustParseTemplate("error.html")

	return func(w http.ResponseWriter, r *http.Request) {
		form := parseResetPasswordForm(r)
		if form.UserID == "" || form.Token == "" {
			render(w, http.StatusBadRequest, errorTmpl, s.page("Erro"))
			return
		}

		data := s.page("Alterar senha")
		data.UserID = form.UserID
		data.Token = form.Token

		if err := form.Validate(); err != nil {
			data.FieldErrors = fieldErrors(err)
			render(w, http.StatusBadRequest, formTmpl, data)
			return
		}

		result, err := s.accounts.ResetPassword(r.Context(), form.UserID, form.Token, form.Password)
		if err != nil {
			s.serverError(w, errorTmpl, err)
			return
		}

		switch result.Outcome {
		case accounts.OutcomeHome:
			redirectSuccess(w, r, RouteHome)
		case accounts.OutcomeFormErrors:
			data.Errors = result.Errors
			render(w, http.StatusOK, formTmpl, data)
		default:
			render(w, http.StatusBadRequest, errorTmpl, s.page("Erro"))
		}
	}
}

// ValidatePasswordHandler validates password strength via API
func (s *Server) ValidatePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		password := r.FormValue("password")

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if password == "" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if violations := users.PasswordPolicyViolations(password); len(violations) > 0 {
			message := strings.Join(violations, "; ")
			trigger, _ := json.Marshal(map[string]string{"passwordInvalid": message})
			// Add class to parent input via HTMX response header
			w.Header().Set("HX-Trigger", string(trigger))
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `<span class="text-danger"><i class="bi bi-x-circle-fill me-1"></i>%s</span>`, html.EscapeString(message))
			return
		}

		w.Header().Set("HX-Trigger", `{"passwordValid": ""}`)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<span class="text-success"><i class="bi bi-check-circle-fill me-1"></i></span>`)
	}
}
