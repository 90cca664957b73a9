package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the conversational intake engine.
type IntakeMetrics struct {
	turnsTotal      *prometheus.CounterVec
	silentTotal     prometheus.Counter
	escalations     *prometheus.CounterVec
	gatewayFailures *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staydesk",
			Subsystem: "intake",
			Name:      "turns_total",
			Help:      "Total handled turns by dialogue state",
		}, []string{"state"}),
		silentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "staydesk",
			Subsystem: "intake",
			Name:      "silent_turns_total",
			Help:      "Turns skipped because an operator owns the conversation",
		}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staydesk",
			Subsystem: "intake",
			Name:      "escalations_total",
			Help:      "Conversations escalated to a human, by reason",
		}, []string{"reason"}),
		gatewayFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "staydesk",
			Subsystem: "intake",
			Name:      "gateway_failures_total",
			Help:      "Failed ticket store calls by operation",
		}, []string{"operation"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "staydesk",
			Subsystem: "intake",
			Name:      "turn_latency_seconds",
			Help:      "Latency of a full turn including ticket store calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "staydesk",
			Subsystem: "intake",
			Name:      "active_sessions",
			Help:      "Conversations currently held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.silentTotal, m.escalations, m.gatewayFailures, m.turnLatency, m.activeSessions)
	return m
}

func (m *IntakeMetrics) ObserveTurn(state string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state).Inc()
	m.turnLatency.WithLabelValues(state).Observe(seconds)
}

func (m *IntakeMetrics) ObserveSilentTurn() {
	if m == nil {
		return
	}
	m.silentTotal.Inc()
}

func (m *IntakeMetrics) ObserveEscalation(reason string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(reason).Inc()
}

func (m *IntakeMetrics) ObserveGatewayFailure(operation string) {
	if m == nil {
		return
	}
	m.gatewayFailures.WithLabelValues(operation).Inc()
}

func (m *IntakeMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
