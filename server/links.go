package server

import (
	"net/url"
	"strings"
)

// Links builds the absolute callback URLs mailed to users. It always uses the configured base
// URL, never the request's Host header.
type Links struct {
	baseURL string
}

func NewLinks(baseURL string) *Links {
	return &Links{baseURL: strings.TrimRight(baseURL, "/")}
}

func (l *Links) ConfirmEmailURL(userID, token string) string {
	return l.build(RouteConfirmEmail, userID, token)
}

func (l *Links) ResetPasswordURL(userID, token string) string {
	return l.build(RouteResetPassword, userID, token)
}

func (l *Links) build(route, userID, token string) string {
	q := url.Values{}
	q.Set(ParamUserID, userID)
	q.Set(ParamToken, token)
	return l.baseURL + route + "?" + q.Encode()
}
