// Package server exposes the board registry and session stub over the
// subset of the Jira REST API that kanban integrations call.
//
// Endpoints:
//
//	POST   /rest/auth/1/session                              - login, sets JSESSIONID
//	DELETE /rest/auth/1/session                              - logout
//	GET    /rest/agile/{apiVersion}/board                    - list boards
//	GET    /rest/agile/{apiVersion}/board/{boardId}          - board
//	GET    /rest/agile/{apiVersion}/board/{boardId}/configuration
//	GET    /rest/agile/{apiVersion}/board/{boardId}/issue    - paginated issues
//	GET    /rest/agile/{apiVersion}/issue/{issueIdOrKey}     - single issue
//	GET    /health, /ready, /metrics
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/jira-stub/pkg/metrics"
	"github.com/Sternrassler/jira-stub/pkg/registry"
	"github.com/Sternrassler/jira-stub/pkg/session"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Route prefixes.
const (
	AgilePrefix = "/rest/agile/{apiVersion}"
	SessionPath = "/rest/auth/1/session"
)

// Fixed error bodies, served verbatim.
const (
	ErrorMessageBoard = `{"errorMessages":[],"errors":{"rapidViewId":"The requested board cannot be viewed because it either does not exist or you do not have permission to view it."}}`
	ErrorMessageIssue = `{"errorMessages":["The issue no longer exists."],"errors":{}}`
)

// maxLoginBody bounds the size of a login request body.
const maxLoginBody = 1 << 20

// Server serves a read-only board registry.
type Server struct {
	registry *registry.Registry
	auth     *session.Authenticator
	logger   zerolog.Logger
	handler  http.Handler
}

// New creates a server for reg. Requests are logged to logger.
func New(reg *registry.Registry, auth *session.Authenticator, logger zerolog.Logger) *Server {
	if reg == nil {
		panic("registry cannot be nil")
	}
	if auth == nil {
		panic("authenticator cannot be nil")
	}

	s := &Server{
		registry: reg,
		auth:     auth,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+SessionPath, s.handleLogin)
	mux.HandleFunc("DELETE "+SessionPath, s.handleLogout)
	mux.HandleFunc("GET "+AgilePrefix+"/board", s.handleBoards)
	mux.HandleFunc("GET "+AgilePrefix+"/board/{boardId}", s.handleBoard)
	mux.HandleFunc("GET "+AgilePrefix+"/board/{boardId}/configuration", s.handleBoardConfiguration)
	mux.HandleFunc("GET "+AgilePrefix+"/board/{boardId}/issue", s.handleBoardIssues)
	mux.HandleFunc("GET "+AgilePrefix+"/issue/{issueIdOrKey}", s.handleIssue)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Gatherer, promhttp.HandlerOpts{}))

	s.handler = s.instrument(mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// HTTPServer wraps the server in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if s.registry.Len() == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no boards loaded"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.auth.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Session store not ready")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("session store unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}
