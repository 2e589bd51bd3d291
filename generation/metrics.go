package generation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is optional; a nil *Metrics records nothing.
type Metrics struct {
	attempts  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	fallbacks *prometheus.CounterVec
	repairs   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amplify_generation_attempts_total",
			Help: "Provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amplify_generation_duration_seconds",
			Help:    "Provider call latency",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 90},
		}, []string{"provider"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amplify_generation_fallbacks_total",
			Help: "Fallback attempts by provider",
		}, []string{"provider"}),
		repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "amplify_generation_title_repairs_total",
			Help: "Titles replaced because they contained a banned phrase",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.latency, m.fallbacks, m.repairs)
	}
	return m
}

func (m *Metrics) observeAttempt(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(provider, outcome).Inc()
	m.latency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) observeFallback(provider string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(provider).Inc()
}

func (m *Metrics) observeRepair() {
	if m == nil {
		return
	}
	m.repairs.Inc()
}
