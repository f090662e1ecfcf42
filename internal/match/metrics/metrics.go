package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for match progression.
type Metrics struct {
	ActionsApplied    *prometheus.CounterVec
	TransitionsDenied *prometheus.CounterVec
	MatchesActivated  prometheus.Counter
	ScoreDrift        prometheus.Histogram
}

// New creates and registers all match metrics.
func New() *Metrics {
	return &Metrics{
		ActionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taaruf_match_actions_applied_total",
			Help: "Successfully applied match actions by action name",
		}, []string{"action"}),
		TransitionsDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taaruf_match_transitions_denied_total",
			Help: "Rejected match actions by error code",
		}, []string{"code"}),
		MatchesActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taaruf_matches_activated_total",
			Help: "Matches that reached mutual approval and chatting",
		}),
		ScoreDrift: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "taaruf_score_drift",
			Help:    "Absolute gap between freshly computed and stored final scores",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		}),
	}
}

func (m *Metrics) RecordAction(action string) {
	if m == nil {
		return
	}
	m.ActionsApplied.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordDenied(code string) {
	if m == nil {
		return
	}
	m.TransitionsDenied.WithLabelValues(code).Inc()
}

func (m *Metrics) RecordActivation() {
	if m == nil {
		return
	}
	m.MatchesActivated.Inc()
}

func (m *Metrics) ObserveDrift(gap float64) {
	if m == nil {
		return
	}
	m.ScoreDrift.Observe(gap)
}
