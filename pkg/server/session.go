package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Sternrassler/jira-stub/pkg/session"
)

type sessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type loginResponse struct {
	Session sessionCookie `json:"session"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxLoginBody))
	if err != nil {
		s.logger.Info().Err(err).Msg("Unreadable login request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	username, password, err := session.ParseCredentials(body)
	if err != nil {
		s.logger.Info().Err(err).Msg("Malformed login request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	sess, err := s.auth.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Unauthorized"))
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Login failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
	})

	resp := loginResponse{Session: sessionCookie{Name: session.CookieName, Value: sess.ID}}
	body, err = json.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode login response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeRaw(w, body)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		http.Error(w, "missing "+session.CookieName+" cookie", http.StatusBadRequest)
		return
	}

	if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
		s.logger.Error().Err(err).Msg("Logout failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
