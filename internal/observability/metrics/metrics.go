package metrics

import "github.com/prometheus/client_golang/prometheus"

// AssistantMetrics exposes counters/histograms for the booking conversation.
type AssistantMetrics struct {
	turnsTotal    *prometheus.CounterVec
	engineLatency *prometheus.HistogramVec
	finalizeTotal *prometheus.CounterVec
}

func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	m := &AssistantMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Conversation turns by provenance and fallback reason",
		}, []string{"provenance", "reason"}),
		engineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "conversation",
			Name:      "engine_latency_seconds",
			Help:      "Latency of extraction engine calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 30},
		}, []string{"provider", "status"}),
		finalizeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "finalizer",
			Name:      "outcomes_total",
			Help:      "Booking finalization outcomes",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.engineLatency, m.finalizeTotal)
	return m
}

// ObserveTurn counts a processed turn. reason is empty for model turns.
func (m *AssistantMetrics) ObserveTurn(provenance, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	m.turnsTotal.WithLabelValues(provenance, reason).Inc()
}

func (m *AssistantMetrics) ObserveEngineLatency(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.engineLatency.WithLabelValues(provider, status).Observe(seconds)
}

func (m *AssistantMetrics) ObserveFinalize(status string) {
	if m == nil {
		return
	}
	m.finalizeTotal.WithLabelValues(status).Inc()
}
