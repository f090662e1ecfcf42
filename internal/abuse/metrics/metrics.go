package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the anti-abuse guard.
type Metrics struct {
	Rejections     *prometheus.CounterVec
	PenaltyFreezes *prometheus.CounterVec
	StoreFailures  prometheus.Counter
}

// New creates and registers all abuse metrics.
func New() *Metrics {
	return &Metrics{
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taaruf_abuse_rejections_total",
			Help: "Decisions rejected by the guard, by reason",
		}, []string{"reason"}),
		PenaltyFreezes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taaruf_abuse_penalty_freezes_total",
			Help: "Penalty freezes imposed, by level",
		}, []string{"level"}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taaruf_abuse_counter_store_failures_total",
			Help: "Counter store errors absorbed by the degradation policy",
		}),
	}
}

func (m *Metrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordFreeze(level string) {
	if m == nil {
		return
	}
	m.PenaltyFreezes.WithLabelValues(level).Inc()
}

func (m *Metrics) RecordStoreFailure() {
	if m == nil {
		return
	}
	m.StoreFailures.Inc()
}
