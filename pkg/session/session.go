// Package session implements the stub's login flow: a single accepted
// credential pair, random session ids and a store that remembers issued
// sessions until they expire or are deleted.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CookieName is the cookie carrying the session id.
const CookieName = "JSESSIONID"

var (
	// ErrMalformedRequest indicates a login body that is not JSON or lacks a credential field.
	ErrMalformedRequest = errors.New("malformed login request")

	// ErrInvalidCredentials indicates credentials that do not match the accepted pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound indicates an unknown or expired session id.
	ErrSessionNotFound = errors.New("session not found")
)

// Session is an issued login session.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// TTL returns the time until expiration, or 0 if already expired.
func (s *Session) TTL() time.Duration {
	ttl := time.Until(s.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Credentials is the login request body.
type Credentials struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// ParseCredentials decodes a login body. Both fields must be present.
func ParseCredentials(body []byte) (username, password string, err error) {
	var c Credentials
	if err := json.Unmarshal(body, &c); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if c.Username == nil || c.Password == nil {
		return "", "", fmt.Errorf("%w: username and password are required", ErrMalformedRequest)
	}
	return *c.Username, *c.Password, nil
}

// Store persists issued sessions.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Config holds the accepted credentials and session lifetime.
type Config struct {
	Username string
	Password string
	TTL      time.Duration
}

// DefaultConfig returns the credential pair the stub has always accepted.
func DefaultConfig() Config {
	return Config{
		Username: "username",
		Password: "password",
		TTL:      30 * time.Minute,
	}
}

// Authenticator checks credentials and issues sessions.
type Authenticator struct {
	config Config
	store  Store
	logger zerolog.Logger
	newID  func() string
}

// NewAuthenticator creates an authenticator backed by store.
func NewAuthenticator(cfg Config, store Store, logger zerolog.Logger) *Authenticator {
	if store == nil {
		panic("session store cannot be nil")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Authenticator{
		config: cfg,
		store:  store,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Login issues a new session when the credentials match. The username is
// compared case-insensitively, the password exactly.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*Session, error) {
	a.logger.Info().Str("username", username).Msg("Login requested")

	if !strings.EqualFold(username, a.config.Username) || password != a.config.Password {
		logins.WithLabelValues("unauthorized").Inc()
		a.logger.Info().Str("username", username).Msg("Invalid username or password")
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	s := &Session{
		ID:        a.newID(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(a.config.TTL),
	}
	if err := a.store.Save(ctx, s); err != nil {
		logins.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("save session: %w", err)
	}

	logins.WithLabelValues("ok").Inc()
	a.logger.Info().Str("session_id", s.ID).Msg("Session issued")
	return s, nil
}

// Logout deletes a session. Unknown sessions are not an error.
func (a *Authenticator) Logout(ctx context.Context, id string) error {
	var username string
	if s, err := a.Lookup(ctx, id); err == nil {
		username = s.Username
	}

	if err := a.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	logouts.Inc()
	a.logger.Info().Str("session_id", id).Str("username", username).Msg("Session closed")
	return nil
}

// Lookup returns a live session by id.
func (a *Authenticator) Lookup(ctx context.Context, id string) (*Session, error) {
	return a.store.Get(ctx, id)
}

// Ping checks that the session store is reachable.
func (a *Authenticator) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}
