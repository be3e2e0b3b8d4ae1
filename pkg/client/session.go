package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const sessionPath = "/rest/auth/1/session"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Session struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"session"`
}

// Login opens a session. Later requests carry it as the JSESSIONID cookie.
// Rejected credentials return an error wrapping ErrUnauthorized.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.do(ctx, "login", http.MethodPost, sessionPath, nil, loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return err
	}

	var lr loginResponse
	if err := json.Unmarshal(resp.Body, &lr); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if lr.Session.Value == "" {
		return fmt.Errorf("login response carries no session")
	}

	c.setSession(lr.Session.Value)
	c.logger.Info().Str("username", username).Msg("Logged in")
	return nil
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	if c.SessionID() == "" {
		return ErrNotLoggedIn
	}
	if _, err := c.do(ctx, "logout", http.MethodDelete, sessionPath, nil, nil); err != nil {
		return err
	}
	c.setSession("")
	c.logger.Info().Msg("Logged out")
	return nil
}
