// Package metrics documents the Prometheus metrics exported by the stub.
// Metrics are defined in the packages that record them (registry, session,
// server, client) and registered with Registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the stub.
var Registry = prometheus.DefaultRegisterer

// Gatherer exposes the registered metrics, as served on /metrics.
var Gatherer = prometheus.DefaultGatherer

// Metrics Documentation
//
// Registry Metrics (pkg/registry):
//   - jira_stub_profiles_total{result} (Counter): Profiles processed at startup (loaded, failed)
//   - jira_stub_boards (Gauge): Boards currently registered
//
// Session Metrics (pkg/session):
//   - jira_stub_logins_total{result} (Counter): Login attempts (ok, unauthorized, error)
//   - jira_stub_logouts_total (Counter): Closed sessions
//   - jira_stub_session_store_errors_total{operation} (Counter): Session store errors (save, get, delete)
//
// Request Metrics (pkg/server):
//   - jira_stub_requests_total{route, status} (Counter): Requests by mux pattern and HTTP status
//   - jira_stub_request_duration_seconds{route} (Histogram): Request duration by mux pattern
//
// Client Metrics (pkg/client):
//   - jira_stub_client_requests_total{operation, status} (Counter): Client requests by operation and HTTP status
//   - jira_stub_client_request_duration_seconds{operation} (Histogram): Client request duration
//   - jira_stub_client_retries_total{error_class} (Counter): Retry attempts by error class
//   - jira_stub_client_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Example Prometheus Queries:
//
//   # Profiles that failed to load
//   jira_stub_profiles_total{result="failed"} > 0
//
//   # Issue listing rate
//   rate(jira_stub_requests_total{route="GET /rest/agile/{apiVersion}/board/{boardId}/issue"}[5m])
//
//   # Rejected logins
//   rate(jira_stub_logins_total{result="unauthorized"}[5m])
