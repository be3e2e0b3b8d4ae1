package session

import (
	"github.com/Sternrassler/jira-stub/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// logins tracks login attempts by outcome
	logins = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "jira_stub_logins_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"}, // "ok", "unauthorized", "error"
	)

	logouts = promauto.With(metrics.Registry).NewCounter(
		prometheus.CounterOpts{
			Name: "jira_stub_logouts_total",
			Help: "Total number of closed sessions",
		},
	)

	// storeErrors tracks session store operation errors
	storeErrors = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "jira_stub_session_store_errors_total",
			Help: "Total number of session store operation errors",
		},
		[]string{"operation"}, // "save", "get", "delete"
	)
)
