package server

import (
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Form structs carry the posted values. The json tags name the form fields so that
// validation.Errors keys line up with the inputs in the templates.

type registerForm struct {
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func parseRegisterForm(r *http.Request) registerForm {
	return registerForm{
		UserName: strings.TrimSpace(r.PostFormValue("userName")),
		FullName: strings.TrimSpace(r.PostFormValue("fullName")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func (f registerForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.UserName, validation.Required, validation.Length(1, 64)),
		validation.Field(&f.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&f.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&f.Password, validation.Required, validation.Length(1, 128)),
	)
}

// withoutPassword is what gets echoed back into the form
func (f registerForm) withoutPassword() registerForm {
	f.Password = ""
	return f
}

type loginForm struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"continuarLogado"`
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		Password:   r.PostFormValue("password"),
		RememberMe: isChecked(r.PostFormValue("continuarLogado")),
	}
}

func (f loginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, is.Email),
		validation.Field(&f.Password, validation.Required),
	)
}

func (f loginForm) withoutPassword() loginForm {
	f.Password = ""
	return f
}

// emailForm backs forgot password and resend confirmation
type emailForm struct {
	Email string `json:"email"`
}

func parseEmailForm(r *http.Request) emailForm {
	return emailForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
}

func (f emailForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, is.Email),
	)
}

type resetPasswordForm struct {
	UserID          string `json:"usuarioId"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func parseResetPasswordForm(r *http.Request) resetPasswordForm {
	return resetPasswordForm{
		UserID:          r.PostFormValue(ParamUserID),
		Token:           r.PostFormValue(ParamToken),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
}

func (f resetPasswordForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Password, validation.Required, validation.Length(1, 128)),
		validation.Field(&f.ConfirmPassword, validation.Required, validation.By(equalTo(f.Password))),
	)
}

func equalTo(expected string) validation.RuleFunc {
	return func(value interface{}) error {
		if s, _ := value.(string); s != expected {
			return errors.New("passwords do not match")
		}
		return nil
	}
}

func isChecked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1":
		return true
	}
	return false
}

// fieldErrors flattens ozzo validation errors into field name to message
func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, fieldErr := range errs {
			out[field] = fieldErr.Error()
		}
		return out
	}
	out["form"] = err.Error()
	return out
}
