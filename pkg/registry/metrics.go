package registry

import (
	"github.com/Sternrassler/jira-stub/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// profilesLoaded counts profile load outcomes
	profilesLoaded = promauto.With(metrics.Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "jira_stub_profiles_total",
			Help: "Total number of fixture profiles processed by outcome",
		},
		[]string{"result"}, // "loaded", "failed"
	)

	boardsRegistered = promauto.With(metrics.Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "jira_stub_boards",
			Help: "Number of boards currently registered",
		},
	)
)
