package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/jira-stub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issuesPath = "/rest/agile/latest/board/1/issue"

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func newTestClient(t *testing.T, stub *testutil.StubServer) *Client {
	t.Helper()
	cfg := DefaultConfig(stub.URL())
	cfg.HTTPClient = stub.Client()
	cfg.Retry = fastRetry()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func newStub(t *testing.T) *testutil.StubServer {
	t.Helper()
	fsys := testutil.NewFS(
		testutil.Profile("alpha", 1, "ALPHA", 23),
		testutil.Profile("beta", 2, "BETA", 2),
	)
	return testutil.NewStubServer(t, fsys, "alpha", "beta")
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "valid", baseURL: "http://localhost:8080"},
		{name: "trailing slash", baseURL: "https://jira.example.com/"},
		{name: "empty", baseURL: "", wantErr: true},
		{name: "no scheme", baseURL: "localhost:8080", wantErr: true},
		{name: "ftp", baseURL: "ftp://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Config{BaseURL: tt.baseURL})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "latest", c.config.APIVersion)
			assert.Equal(t, DefaultRetryConfig(), c.config.Retry)
			assert.Equal(t, 5, c.config.MaxConcurrency)
			assert.NotNil(t, c.httpClient)
		})
	}
}

func TestAgilePath(t *testing.T) {
	c, err := New(Config{BaseURL: "http://localhost", APIVersion: "1.0"})
	require.NoError(t, err)

	assert.Equal(t, "/rest/agile/1.0/board/7/issue", c.agilePath("board", "7", "issue"))
	assert.Equal(t, "/rest/agile/1.0/issue/A%2FB", c.agilePath("issue", "A/B"))
}

func TestLoginLogout(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)
	ctx := context.Background()

	assert.ErrorIs(t, c.Logout(ctx), ErrNotLoggedIn)

	require.NoError(t, c.Login(ctx, "USERNAME", "password"))
	id := c.SessionID()
	require.NotEmpty(t, id)

	sess, err := stub.Auth.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "USERNAME", sess.Username)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.SessionID())
	_, err = stub.Auth.Lookup(ctx, id)
	assert.Error(t, err)
}

func TestLogin_Unauthorized(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)

	err := c.Login(context.Background(), "username", "PASSWORD")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized", apiErr.Message)
	assert.Empty(t, c.SessionID())
	assert.Equal(t, 1, stub.RequestCount("/rest/auth/1/session"), "4xx must not be retried")
}

func TestBoard(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)
	ctx := context.Background()

	board, err := c.Board(ctx, 2)
	require.NoError(t, err)
	name, ok := board.StringField("name")
	assert.True(t, ok)
	assert.Equal(t, "beta", name)

	config, err := c.BoardConfiguration(ctx, 2)
	require.NoError(t, err)
	id, _ := config.StringField("id")
	assert.Equal(t, "2", id)

	_, err = c.Board(ctx, 99)
	assert.ErrorIs(t, err, ErrBoardNotFound)

	_, err = c.BoardConfiguration(ctx, 99)
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestBoards(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)

	page, err := c.Boards(context.Background(), 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.True(t, page.IsLast)
	require.Len(t, page.Values, 1)
	name, _ := page.Values[0].StringField("name")
	assert.Equal(t, "beta", name)
}

func TestIssues(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)
	ctx := context.Background()

	page, err := c.Issues(ctx, 1, 20, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(20), page.StartAt)
	assert.Equal(t, int64(5), page.MaxResults)
	assert.Equal(t, int64(23), page.Total)
	require.Len(t, page.Issues, 3)
	key, _ := page.Issues[0].StringField("key")
	assert.Equal(t, "ALPHA-21", key)

	_, err = c.Issues(ctx, 99, 0, 5)
	assert.ErrorIs(t, err, ErrBoardNotFound)
	assert.Contains(t, err.Error(), "The board '99' is not found")
}

func TestIssue(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)
	ctx := context.Background()

	byKey, err := c.Issue(ctx, "BETA-2")
	require.NoError(t, err)
	id, _ := byKey.StringField("id")
	assert.Equal(t, "2001", id)

	byID, err := c.Issue(ctx, "2001")
	require.NoError(t, err)
	assert.JSONEq(t, string(byKey), string(byID))

	_, err = c.Issue(ctx, "NOPE-1")
	assert.ErrorIs(t, err, ErrIssueNotFound)
	assert.Contains(t, err.Error(), "The issue no longer exists.")
}

func TestRetry_ServerErrorRecovers(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)

	stub.SetFault("/rest/agile/latest/board/1", testutil.Fault{StatusCode: http.StatusServiceUnavailable, Times: 2})

	_, err := c.Board(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stub.RequestCount("/rest/agile/latest/board/1"))
}

func TestRetry_Exhausted(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)

	stub.SetFault("/rest/agile/latest/board/1", testutil.Fault{StatusCode: http.StatusInternalServerError, Body: "boom", Times: 10})

	_, err := c.Board(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrorClassServer, apiErr.ErrorClass)
	assert.Equal(t, "boom", apiErr.Message)
	assert.Equal(t, 3, stub.RequestCount("/rest/agile/latest/board/1"))
}

func TestRetry_ClientErrorNotRetried(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)

	stub.SetFault(issuesPath, testutil.Fault{StatusCode: http.StatusBadRequest, Times: 10})

	_, err := c.Issues(context.Background(), 1, 0, 5)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ErrorClassClient, apiErr.ErrorClass)
	assert.Equal(t, 1, stub.RequestCount(issuesPath))
}

func TestRetry_ContextCancelled(t *testing.T) {
	stub := newStub(t)
	cfg := DefaultConfig(stub.URL())
	cfg.HTTPClient = stub.Client()
	cfg.Retry = RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiplier: 1}
	c, err := New(cfg)
	require.NoError(t, err)

	stub.SetFault("/rest/agile/latest/board/1", testutil.Fault{StatusCode: http.StatusBadGateway, Times: 10})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Board(ctx, 1)
	assert.ErrorIs(t, err, ErrContextCancelled)
	assert.Equal(t, 1, stub.RequestCount("/rest/agile/latest/board/1"))
}

func TestAllIssues(t *testing.T) {
	tests := []struct {
		name         string
		boardID      int64
		pageSize     int64
		wantCount    int
		wantRequests int
	}{
		{name: "many pages", boardID: 1, pageSize: 5, wantCount: 23, wantRequests: 5},
		{name: "exact multiple", boardID: 1, pageSize: 23, wantCount: 23, wantRequests: 1},
		{name: "single page", boardID: 2, pageSize: 50, wantCount: 2, wantRequests: 1},
		{name: "one per page", boardID: 2, pageSize: 1, wantCount: 2, wantRequests: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStub(t)
			c := newTestClient(t, stub)

			issues, err := c.AllIssues(context.Background(), tt.boardID, tt.pageSize)
			require.NoError(t, err)
			require.Len(t, issues, tt.wantCount)

			prefix := map[int64]string{1: "ALPHA", 2: "BETA"}[tt.boardID]
			for i, issue := range issues {
				key, _ := issue.StringField("key")
				assert.Equal(t, fmt.Sprintf("%s-%d", prefix, i+1), key, "issues must stay in board order")
			}
			assert.Equal(t, tt.wantRequests, stub.TotalRequests())
		})
	}
}

func TestAllIssues_Errors(t *testing.T) {
	stub := newStub(t)
	c := newTestClient(t, stub)
	ctx := context.Background()

	_, err := c.AllIssues(ctx, 1, 0)
	assert.Error(t, err)

	_, err = c.AllIssues(ctx, 99, 5)
	assert.ErrorIs(t, err, ErrBoardNotFound)

	stub.SetFault(issuesPath, testutil.Fault{StatusCode: http.StatusInternalServerError, Times: 100})
	_, err = c.AllIssues(ctx, 1, 5)
	assert.ErrorIs(t, err, ErrRetryExhausted)
}

// cancelAfterPage cancels a context once the page starting at startAt has
// been served in full.
type cancelAfterPage struct {
	next    http.RoundTripper
	startAt string
	cancel  context.CancelFunc
}

func (c *cancelAfterPage) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := c.next.RoundTrip(req)
	if err != nil || req.URL.Query().Get("startAt") != c.startAt {
		return resp, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	c.cancel()
	return resp, nil
}

func TestAllIssues_CancelledBetweenPages(t *testing.T) {
	stub := testutil.NewStubServer(t, testutil.NewFS(testutil.Profile("six", 1, "SIX", 6)), "six")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig(stub.URL())
	cfg.HTTPClient = &http.Client{Transport: &cancelAfterPage{
		next:    stub.Client().Transport,
		startAt: "2",
		cancel:  cancel,
	}}
	cfg.Retry = fastRetry()
	cfg.MaxConcurrency = 1
	c, err := New(cfg)
	require.NoError(t, err)

	issues, err := c.AllIssues(ctx, 1, 2)
	require.Error(t, err, "a cancelled fetch must not return a partial list")
	assert.Nil(t, issues)
	assert.ErrorIs(t, err, ErrContextCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, stub.RequestCount(issuesPath), "no page is fetched after cancellation")
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 401, ErrorClass: ErrorClassClient, Message: "Unauthorized", Err: ErrUnauthorized}
	assert.Equal(t, "jira client error (status 401): Unauthorized: unauthorized", err.Error())
	assert.True(t, errors.Is(err, ErrUnauthorized))

	plain := &APIError{StatusCode: 503, ErrorClass: ErrorClassServer, Message: "down"}
	assert.Equal(t, "jira server error (status 503): down", plain.Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		class  ErrorClass
		retry  bool
	}{
		{200, "", false},
		{204, "", false},
		{400, ErrorClassClient, false},
		{404, ErrorClassClient, false},
		{500, ErrorClassServer, true},
		{503, ErrorClassServer, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.class, classifyStatus(tt.status), "status %d", tt.status)
		if tt.class != "" {
			assert.Equal(t, tt.retry, shouldRetry(tt.class), "status %d", tt.status)
		}
	}

	assert.Equal(t, ErrorClassNetwork, classifyError(errors.New("connection refused")))
	assert.True(t, shouldRetry(ErrorClassNetwork))
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.InitialBackoff)
	assert.Equal(t, 5*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
}
