// Package client is a small Jira Agile client for the stub. It handles the
// JSESSIONID login flow, retries transient failures with backoff, and
// fetches complete issue lists with a bounded worker pool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/jira-stub/pkg/fixture"
	"github.com/Sternrassler/jira-stub/pkg/logging"
	"github.com/Sternrassler/jira-stub/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for client requests.
var (
	requestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "jira_stub_client_requests_total",
		Help: "Total client requests by operation and status",
	}, []string{"operation", "status"})

	requestDuration = promauto.With(metrics.Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jira_stub_client_request_duration_seconds",
		Help:    "Client request duration in seconds by operation",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})
)

const sessionCookieName = "JSESSIONID"

// Client talks to a Jira Agile REST API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger

	mu        sync.RWMutex
	sessionID string
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the scheme and host of the server, e.g. http://localhost:8080.
	BaseURL string

	// APIVersion is the {apiVersion} path segment. Defaults to "latest".
	APIVersion string

	// HTTPClient is used for all requests. Defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	Retry RetryConfig

	// MaxConcurrency bounds parallel page fetches in AllIssues.
	MaxConcurrency int

	// PageTimeout bounds each page fetch in AllIssues.
	PageTimeout time.Duration
}

// DefaultConfig returns a configuration for the server at baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		APIVersion:     "latest",
		Retry:          DefaultRetryConfig(),
		MaxConcurrency: 5,
		PageTimeout:    15 * time.Second,
	}
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	defaults := DefaultConfig(cfg.BaseURL)
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaults.APIVersion
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = defaults.Retry
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaults.MaxConcurrency
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = defaults.PageTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logging.NewLogger("client"),
	}, nil
}

// SessionID returns the session held by the client, or "" when logged out.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// response is a fully read HTTP response.
type response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// isJSON reports whether the response declares a JSON body.
func (r *response) isJSON() bool {
	return strings.HasPrefix(r.ContentType, "application/json")
}

// agilePath builds an Agile API path from escaped segments.
func (c *Client) agilePath(segments ...string) string {
	var b strings.Builder
	b.WriteString("/rest/agile/")
	b.WriteString(url.PathEscape(c.config.APIVersion))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// pageQuery encodes startAt and maxResults.
func pageQuery(startAt, maxResults int64) url.Values {
	q := url.Values{}
	q.Set("startAt", strconv.FormatInt(startAt, 10))
	q.Set("maxResults", strconv.FormatInt(maxResults, 10))
	return q
}

// do sends a request with retries. Any status of 400 or above is returned
// as an *APIError.
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body any) (*response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", operation, err)
		}
	}

	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var resp *response
	err := c.retryWithBackoff(ctx, func() error {
		var err error
		resp, err = c.attempt(ctx, operation, method, endpoint, payload)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, operation, method, endpoint string, payload []byte) (*response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &APIError{ErrorClass: ErrorClassClient, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := c.SessionID(); id != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: id})
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}
	requestsTotal.WithLabelValues(operation, strconv.Itoa(httpResp.StatusCode)).Inc()

	c.logger.Debug().
		Str("operation", operation).
		Str("method", method).
		Str("url", endpoint).
		Int("status", httpResp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request completed")

	if class := classifyStatus(httpResp.StatusCode); class != "" {
		apiErr := &APIError{
			StatusCode: httpResp.StatusCode,
			ErrorClass: class,
			Message:    strings.TrimSpace(string(data)),
		}
		if httpResp.StatusCode == http.StatusUnauthorized {
			apiErr.Err = ErrUnauthorized
		}
		return nil, apiErr
	}

	return &response{
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// errorEnvelope is the Jira error body returned with status 200 for unknown resources.
type errorEnvelope struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

// asErrorEnvelope decodes body as an error envelope. It reports false for
// anything that is not one.
func asErrorEnvelope(body []byte) (errorEnvelope, bool) {
	fields, err := fixture.Document(body).Fields()
	if err != nil {
		return errorEnvelope{}, false
	}
	if _, ok := fields["errorMessages"]; !ok {
		return errorEnvelope{}, false
	}
	if _, ok := fields["errors"]; !ok {
		return errorEnvelope{}, false
	}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errorEnvelope{}, false
	}
	return env, true
}

// decodeDocument returns the response body as a document, mapping an error
// envelope to notFound.
func decodeDocument(resp *response, notFound error) (fixture.Document, error) {
	if env, ok := asErrorEnvelope(resp.Body); ok {
		return nil, fmt.Errorf("%w: %s", notFound, env.message())
	}
	var doc fixture.Document
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return doc, nil
}

func (e errorEnvelope) message() string {
	if len(e.ErrorMessages) > 0 {
		return strings.Join(e.ErrorMessages, "; ")
	}
	for _, msg := range e.Errors {
		return msg
	}
	return "unknown error"
}
