package testutil

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Sternrassler/jira-stub/pkg/fixture"
	"github.com/Sternrassler/jira-stub/pkg/registry"
	"github.com/Sternrassler/jira-stub/pkg/server"
	"github.com/Sternrassler/jira-stub/pkg/session"
	"github.com/rs/zerolog"
)

// Fault makes the stub answer a path with StatusCode for the next Times requests.
type Fault struct {
	StatusCode int
	Body       string
	Times      int
}

// StubServer runs the stub behind httptest and counts requests per path.
type StubServer struct {
	server   *httptest.Server
	Registry *registry.Registry
	Auth     *session.Authenticator

	mu       sync.Mutex
	faults   map[string]*Fault
	requests map[string]int
	total    int
}

// NewStubServer loads profiles from fsys and starts a stub serving them.
// The server is closed when the test ends.
func NewStubServer(t testing.TB, fsys fs.FS, profiles ...string) *StubServer {
	t.Helper()

	reg, err := registry.Load(fixture.NewLoader(fsys, zerolog.Nop()), profiles, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}

	auth := session.NewAuthenticator(session.DefaultConfig(), session.NewMemoryStore(), zerolog.Nop())
	stub := server.New(reg, auth, zerolog.Nop())

	s := &StubServer{
		Registry: reg,
		Auth:     auth,
		faults:   make(map[string]*Fault),
		requests: make(map[string]int),
	}

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.total++
		s.requests[r.URL.Path]++
		fault := s.faults[r.URL.Path]
		if fault != nil && fault.Times > 0 {
			fault.Times--
		} else {
			fault = nil
		}
		s.mu.Unlock()

		if fault != nil {
			w.WriteHeader(fault.StatusCode)
			if fault.Body != "" {
				_, _ = w.Write([]byte(fault.Body))
			}
			return
		}
		stub.ServeHTTP(w, r)
	}))
	t.Cleanup(s.server.Close)

	return s
}

// URL returns the stub server URL.
func (s *StubServer) URL() string {
	return s.server.URL
}

// Client returns an HTTP client for the stub server.
func (s *StubServer) Client() *http.Client {
	return s.server.Client()
}

// SetFault injects a fault for path.
func (s *StubServer) SetFault(path string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = &f
}

// RequestCount returns the number of requests made to path.
func (s *StubServer) RequestCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// TotalRequests returns the number of requests made to the server.
func (s *StubServer) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}
