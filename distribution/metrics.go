package distribution

import (
	"time"

	"amplify-cloud/content"
	"amplify-cloud/history"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts attempts and rollups. A nil *Metrics is a no-op.
type Metrics struct {
	attempts *prometheus.CounterVec
	rollups  *prometheus.CounterVec
	duration prometheus.Histogram
	probes   *prometheus.CounterVec
}

// NewMetrics registers the distribution collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amplify_distribution_attempts_total",
			Help: "Publish attempts by platform and outcome",
		}, []string{"platform", "status"}),
		rollups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amplify_distribution_rollups_total",
			Help: "Content status rollups by resulting status",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "amplify_distribution_duration_seconds",
			Help:    "Wall time of one distribute call",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amplify_connection_probes_total",
			Help: "Connection tests by platform and result",
		}, []string{"platform", "ok"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.rollups, m.duration, m.probes)
	}
	return m
}

func (m *Metrics) observeAttempt(p content.Platform, status history.AttemptStatus) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(string(p), string(status)).Inc()
}

func (m *Metrics) observeRollup(status content.Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rollups.WithLabelValues(string(status)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeProbe(p content.Platform, ok bool) {
	if m == nil {
		return
	}
	label := "false"
	if ok {
		label = "true"
	}
	m.probes.WithLabelValues(string(p), label).Inc()
}
