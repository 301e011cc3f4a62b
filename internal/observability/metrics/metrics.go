package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the conversation funnel.
type ConversationMetrics struct {
	turnsTotal          *prometheus.CounterVec
	clarificationsTotal *prometheus.CounterVec
	llmFallbacksTotal   *prometheus.CounterVec
	bookingsTotal       *prometheus.CounterVec
	persistFailures     prometheus.Counter
	turnLatency         prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reparoja",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed conversation turns by outcome",
		}, []string{"outcome"}),
		clarificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reparoja",
			Subsystem: "conversation",
			Name:      "clarifications_total",
			Help:      "Clarifying questions asked, by slot",
		}, []string{"slot"}),
		llmFallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reparoja",
			Subsystem: "conversation",
			Name:      "llm_fallbacks_total",
			Help:      "Turns where an LLM call degraded to the deterministic path",
		}, []string{"component"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reparoja",
			Subsystem: "conversation",
			Name:      "bookings_total",
			Help:      "Scheduling outcomes by status",
		}, []string{"status"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reparoja",
			Subsystem: "conversation",
			Name:      "session_persist_failures_total",
			Help:      "Session store writes that failed after a computed reply",
		}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reparoja",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full conversation turn",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.turnsTotal,
		m.clarificationsTotal,
		m.llmFallbacksTotal,
		m.bookingsTotal,
		m.persistFailures,
		m.turnLatency,
	)
	return m
}

func (m *ConversationMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnLatency.Observe(seconds)
}

func (m *ConversationMetrics) ObserveClarification(slot string) {
	if m == nil {
		return
	}
	m.clarificationsTotal.WithLabelValues(slot).Inc()
}

func (m *ConversationMetrics) ObserveLLMFallback(component string) {
	if m == nil {
		return
	}
	m.llmFallbacksTotal.WithLabelValues(component).Inc()
}

func (m *ConversationMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObservePersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}
