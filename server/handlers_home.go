package server

import (
	"net/http"

	"github.com/jrsteele09/go-forum-accounts/users"
)

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.page("Início")
		data.User, _ = r.Context().Value(ContextKeyUser).(*users.User)
		render(w, http.StatusOK, tmpl, data)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
