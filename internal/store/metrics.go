package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Action results recorded in storefront_actions_total.
const (
	resultSuccess      = "success"
	resultError        = "error"
	resultForbidden    = "forbidden"
	resultAuthRequired = "auth_required"
	resultInvalid      = "invalid"
)

// Metrics are the store's prometheus collectors.
type Metrics struct {
	actions        *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	stale          *prometheus.CounterVec
	pendingIntents prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_actions_total",
			Help: "Store actions by outcome.",
		}, []string{"action", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_action_duration_seconds",
			Help:    "Store action latency including API round trips.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action"}),
		stale: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_stale_responses_total",
			Help: "Responses discarded because a newer request was applied first.",
		}, []string{"resource"}),
		pendingIntents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_pending_intents",
			Help: "Guest intents waiting for replay.",
		}),
	}
}

func (m *Metrics) observe(action, result string, seconds float64) {
	m.actions.WithLabelValues(action, result).Inc()
	if result == resultSuccess || result == resultError {
		m.duration.WithLabelValues(action).Observe(seconds)
	}
}

func (m *Metrics) staleResponse(resource string) {
	m.stale.WithLabelValues(resource).Inc()
}

func (m *Metrics) setPending(n int64) {
	m.pendingIntents.Set(float64(n))
}
