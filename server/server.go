package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-forum-accounts/accounts"
	"github.com/jrsteele09/go-forum-accounts/internal/config"
	"github.com/jrsteele09/go-forum-accounts/sessions"
	"github.com/jrsteele09/go-forum-accounts/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Config is the part of the configuration the HTTP layer reads
type Config interface {
	config.EnvConfig
	GetSessionCookieName() string
}

// Accounts runs the account flows. accounts.Orchestrator implements it.
type Accounts interface {
	Register(ctx context.Context, in accounts.RegisterInput) (accounts.Result, error)
	ResendConfirmation(ctx context.Context, email string) (accounts.Result, error)
	ConfirmEmail(ctx context.Context, userID, token string) (accounts.Result, error)
	Login(ctx context.Context, in accounts.LoginInput) (accounts.Result, error)
	Logout(ctx context.Context, sessionID string) (accounts.Result, error)
	ForgotPassword(ctx context.Context, email string) (accounts.Result, error)
	ResetPassword(ctx context.Context, userID, token, newPassword string) (accounts.Result, error)
}

// SessionReader resolves session cookies. sessions.Authority implements it.
type SessionReader interface {
	Current(ctx context.Context, sessionID string) (*sessions.Session, error)
}

// UserReader loads the signed-in user. users.Manager implements it.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

var (
	_ Accounts      = (*accounts.Orchestrator)(nil)
	_ SessionReader = (*sessions.Authority)(nil)
	_ UserReader    = (*users.Manager)(nil)
)

type Deps struct {
	Accounts Accounts
	Sessions SessionReader
	Users    UserReader
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   Config
	accounts Accounts
	sessions SessionReader
	users    UserReader
}

func New(config Config, deps Deps) (*Server, error) {
	if deps.Accounts == nil || deps.Sessions == nil || deps.Users == nil {
		return nil, errors.New("[server.New] accounts, sessions and users are required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		accounts: deps.Accounts,
		sessions: deps.Sessions,
		users:    deps.Users,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msg(fmt.Sprintf("[%-19s] %s", colourMethod(method), path))
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
