package server_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-forum-accounts/accounts"
	"github.com/jrsteele09/go-forum-accounts/internal/config"
	"github.com/jrsteele09/go-forum-accounts/mail/mailfake"
	"github.com/jrsteele09/go-forum-accounts/server"
	"github.com/jrsteele09/go-forum-accounts/sessions"
	"github.com/jrsteele09/go-forum-accounts/token"
	"github.com/jrsteele09/go-forum-accounts/users"
	fakeuserrepo "github.com/jrsteele09/go-forum-accounts/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	cookieName    = "forum_session"
	aliceEmail    = "alice@example.com"
	alicePassword = "Secret123!"
)

var linkPattern = regexp.MustCompile(`http://[^\s,]+`)

type testFixture struct {
	server *server.Server
	mail   *mailfake.Recorder
	users  *fakeuserrepo.FakeUserRepo
}

func cheapHash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(b), err
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	cfg := &config.Config{
		Server: config.Server{AppName: "Forum Test", BaseURL: "http://forum.test", Env: "TEST"},
		Security: config.Security{
			LockoutMaxAttempts:   5,
			LockoutDuration:      5 * time.Minute,
			SessionTTL:           time.Hour,
			PersistentSessionTTL: 24 * time.Hour,
			SessionCookieName:    cookieName,
		},
	}

	f := &testFixture{
		mail:  mailfake.NewRecorder(),
		users: fakeuserrepo.NewFakeUserRepo(),
	}

	issuer, err := token.NewIssuer(token.NewHMACSigner("test-secret"), token.NewInMemoryUsedTokens())
	require.NoError(t, err)

	manager, err := users.NewManager(f.users, issuer, users.WithHasher(cheapHash))
	require.NoError(t, err)

	authority, err := sessions.NewAuthority(sessions.NewInMemoryRepo(), manager, f.users, cfg)
	require.NoError(t, err)

	orchestrator, err := accounts.New(accounts.Deps{
		Credentials: manager,
		Tokens:      issuer,
		Mail:        f.mail,
		Sessions:    authority,
		Links:       server.NewLinks(cfg.GetBaseURL()),
		AppName:     cfg.GetAppName(),
	})
	require.NoError(t, err)

	f.server, err = server.New(cfg, server.Deps{Accounts: orchestrator, Sessions: authority, Users: manager})
	require.NoError(t, err)
	return f
}

func (f *testFixture) get(t *testing.T, target string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return f.serve(req)
}

func (f *testFixture) post(t *testing.T, target string, form url.Values, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return f.serve(req)
}

func (f *testFixture) serve(req *http.Request) (*http.Response, string) {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec.Result(), rec.Body.String()
}

func (f *testFixture) register(t *testing.T) {
	t.Helper()
	resp, body := f.post(t, server.RouteRegister, url.Values{
		"userName": {"alice"},
		"fullName": {"Alice Liddell"},
		"email":    {aliceEmail},
		"password": {alicePassword},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "awaiting-confirmation")
}

// lastLink returns the path and query of the link in the newest mail sent to recipient
func (f *testFixture) lastLink(t *testing.T, recipient string) string {
	t.Helper()
	msgs := f.mail.To(recipient)
	require.NotEmpty(t, msgs)
	link := linkPattern.FindString(msgs[len(msgs)-1].Body)
	require.NotEmpty(t, link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "forum.test", u.Host)
	return u.RequestURI()
}

func (f *testFixture) confirm(t *testing.T) {
	t.Helper()
	resp, _ := f.get(t, f.lastLink(t, aliceEmail))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteHome, resp.Header.Get("Location"))
}

func (f *testFixture) login(t *testing.T, password string, rememberMe bool) (*http.Response, string) {
	t.Helper()
	form := url.Values{"email": {aliceEmail}, "password": {password}}
	if rememberMe {
		form.Set("continuarLogado", "on")
	}
	return f.post(t, server.RouteLogin, form)
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := server.New(&config.Config{}, server.Deps{})
	require.Error(t, err)
}

func TestPagesRender(t *testing.T) {
	f := setupTestFixture(t)

	pages := map[string]string{
		server.RouteHome:           "Entrar",
		server.RouteRegister:       `name="userName"`,
		server.RouteLogin:          `name="continuarLogado"`,
		server.RouteForgotPassword: `action="/Conta/EsqueciSenha"`,
	}
	for route, marker := range pages {
		resp, body := f.get(t, route)
		require.Equal(t, http.StatusOK, resp.StatusCode, route)
		require.Contains(t, resp.Header.Get("Content-Type"), "text/html", route)
		require.Contains(t, body, "Forum Test", route)
		require.Contains(t, body, marker, route)
	}
}

func TestHealth(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.get(t, server.RouteHealth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, body)
}

func TestRegisterInvalidForm(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.post(t, server.RouteRegister, url.Values{
		"userName": {"alice"},
		"fullName": {"Alice Liddell"},
		"email":    {"not-an-email"},
		"password": {alicePassword},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "field-error")
	require.Contains(t, body, `value="alice"`)
	require.NotContains(t, body, alicePassword)
	require.Zero(t, f.mail.Len())
}

func TestRegisterWeakPasswordShowsEveryRule(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.post(t, server.RouteRegister, url.Values{
		"userName": {"alice"},
		"fullName": {"Alice Liddell"},
		"email":    {aliceEmail},
		"password": {"abc"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "at least 8 characters")
	require.Contains(t, body, "uppercase")
	require.Zero(t, f.mail.Len())
}

func TestRegisterConfirmLoginLogoff(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	f.confirm(t)

	resp, _ := f.login(t, alicePassword, false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteHome, resp.Header.Get("Location"))

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Zero(t, cookie.MaxAge, "non persistent logins get a browser-session cookie")

	resp, body := f.get(t, server.RouteHome, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Alice Liddell")
	require.Contains(t, body, `action="/Conta/Logoff"`)

	resp, _ = f.post(t, server.RouteLogoff, url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)

	_, body = f.get(t, server.RouteHome, cookie)
	require.NotContains(t, body, "Alice Liddell")
	require.Contains(t, body, "Entrar")
}

func TestRememberMeSetsPersistentCookie(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	f.confirm(t)

	resp, _ := f.login(t, alicePassword, true)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	require.Positive(t, cookie.MaxAge)
}

func TestLoginBeforeConfirmation(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	resp, body := f.login(t, alicePassword, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "awaiting-confirmation")
	require.Nil(t, sessionCookie(resp))
}

func TestLoginUnknownAndWrongPasswordLookAlike(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	f.confirm(t)

	_, wrong := f.login(t, "Wrong123!", false)
	_, unknown := f.post(t, server.RouteLogin, url.Values{"email": {"bob@example.com"}, "password": {"Wrong123!"}})
	require.Contains(t, wrong, accounts.MsgInvalidCredentials)
	require.Equal(t, strings.Replace(wrong, aliceEmail, "bob@example.com", 1), unknown)
}

func TestLockout(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	f.confirm(t)

	for i := 0; i < 4; i++ {
		resp, body := f.login(t, "Wrong123!", false)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, accounts.MsgInvalidCredentials)
	}

	_, body := f.login(t, "Wrong123!", false)
	require.Contains(t, body, accounts.MsgLockedOut)

	resp, body := f.login(t, alicePassword, false)
	require.Contains(t, body, accounts.MsgLockedOut)
	require.Nil(t, sessionCookie(resp))
}

func TestConfirmEmailRejectsBadLinks(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)

	for _, target := range []string{
		server.RouteConfirmEmail,
		server.RouteConfirmEmail + "?usuarioId=nobody&token=garbage",
	} {
		resp, body := f.get(t, target)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, target)
		require.Contains(t, body, `class="error"`, target)
	}

	link := f.lastLink(t, aliceEmail)
	resp, _ := f.get(t, link)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = f.get(t, link)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "links are single use")
}

func TestResendConfirmation(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	require.Len(t, f.mail.To(aliceEmail), 1)

	resp, known := f.post(t, server.RouteResendConfirmation, url.Values{"email": {aliceEmail}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, f.mail.To(aliceEmail), 2)

	_, unknown := f.post(t, server.RouteResendConfirmation, url.Values{"email": {"bob@example.com"}})
	require.Equal(t, known, unknown)
	require.Empty(t, f.mail.To("bob@example.com"))

	f.confirm(t)
}

func TestForgotPasswordAnswersAlike(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	f.confirm(t)
	sent := f.mail.Len()

	resp, known := f.post(t, server.RouteForgotPassword, url.Values{"email": {aliceEmail}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, unknown := f.post(t, server.RouteForgotPassword, url.Values{"email": {"bob@example.com"}})

	require.Equal(t, known, unknown)
	require.Contains(t, known, "reset-email-sent")
	require.Equal(t, sent+1, f.mail.Len())
}

func TestResetPassword(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	f.confirm(t)

	f.post(t, server.RouteForgotPassword, url.Values{"email": {aliceEmail}})
	link := f.lastLink(t, aliceEmail)
	u, err := url.Parse(link)
	require.NoError(t, err)
	userID, raw := u.Query().Get(server.ParamUserID), u.Query().Get(server.ParamToken)

	resp, body := f.get(t, link)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, `value="`+raw+`"`)

	form := url.Values{
		server.ParamUserID: {userID},
		server.ParamToken:  {raw},
		"password":         {"Another456?"},
		"confirmPassword":  {"Another456?"},
	}
	resp, _ = f.post(t, server.RouteResetPassword, form)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteHome, resp.Header.Get("Location"))
	require.Nil(t, sessionCookie(resp), "a reset does not sign the user in")

	resp, body = f.post(t, server.RouteResetPassword, form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, accounts.MsgInvalidToken)

	resp, _ = f.login(t, alicePassword, false)
	require.Nil(t, sessionCookie(resp))
	resp, _ = f.login(t, "Another456?", false)
	require.NotNil(t, sessionCookie(resp))
}

func TestResetPasswordFormErrors(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.get(t, server.RouteResetPassword)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.post(t, server.RouteResetPassword, url.Values{"password": {"Another456?"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := f.post(t, server.RouteResetPassword, url.Values{
		server.ParamUserID: {"u1"},
		server.ParamToken:  {"t1"},
		"password":         {"Another456?"},
		"confirmPassword":  {"Another456!"},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "passwords do not match")
	require.Contains(t, body, `value="t1"`)
}

func TestHTMXLoginRedirect(t *testing.T) {
	f := setupTestFixture(t)
	f.register(t)
	f.confirm(t)

	req := httptest.NewRequest(http.MethodPost, server.RouteLogin,
		strings.NewReader(url.Values{"email": {aliceEmail}, "password": {alicePassword}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")

	resp, _ := f.serve(req)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, server.RouteHome, resp.Header.Get("HX-Redirect"))
	require.NotNil(t, sessionCookie(resp))
}

func TestValidatePassword(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.post(t, server.RouteAPIValidatePassword, url.Values{"password": {"abc"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("HX-Trigger"), "passwordInvalid")
	require.Contains(t, body, "text-danger")

	resp, body = f.post(t, server.RouteAPIValidatePassword, url.Values{"password": {alicePassword}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("HX-Trigger"), "passwordValid")
	require.Contains(t, body, "text-success")

	_, body = f.post(t, server.RouteAPIValidatePassword, url.Values{})
	require.Empty(t, body)
}

func TestSecurityHeaders(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.get(t, server.RouteLogin)
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
	require.Equal(t, "no-referrer", resp.Header.Get("Referrer-Policy"))
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestWWWRedirect(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteLogin, nil)
	req.Host = "www.forum.test"
	resp, _ := f.serve(req)
	require.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	require.Equal(t, "https://forum.test"+server.RouteLogin, resp.Header.Get("Location"))
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupTestFixture(t)

	handler := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, f.server.APIMiddleware()...)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnknownRoutes(t *testing.T) {
	f := setupTestFixture(t)

	resp, _ := f.get(t, "/Conta/Nada")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.serve(httptest.NewRequest(http.MethodDelete, server.RouteLogin, nil))
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStaleCookieIsCleared(t *testing.T) {
	f := setupTestFixture(t)

	resp, body := f.get(t, server.RouteHome, &http.Cookie{Name: cookieName, Value: "gone"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Entrar")
	cleared := sessionCookie(resp)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)
}
