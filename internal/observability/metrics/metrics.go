package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatbotMetrics exposes counters/histograms for the conversation engine and
// the idle-session reclaim sweep.
type ChatbotMetrics struct {
	sessionsStarted prometheus.Counter
	turnsTotal      *prometheus.CounterVec
	leadsTotal      *prometheus.CounterVec
	turnLatency     prometheus.Histogram
	sweepsTotal     prometheus.Counter
	sweepSaved      prometheus.Counter
}

func NewChatbotMetrics(reg prometheus.Registerer) *ChatbotMetrics {
	m := &ChatbotMetrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aqualeads",
			Subsystem: "chatbot",
			Name:      "sessions_started_total",
			Help:      "Total chat sessions started",
		}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aqualeads",
			Subsystem: "chatbot",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"outcome"}),
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aqualeads",
			Subsystem: "chatbot",
			Name:      "leads_created_total",
			Help:      "Total leads materialized from chat sessions",
		}, []string{"origin"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aqualeads",
			Subsystem: "chatbot",
			Name:      "turn_latency_seconds",
			Help:      "Latency of conversation turn processing",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aqualeads",
			Subsystem: "reclaimer",
			Name:      "sweeps_total",
			Help:      "Total idle-session reclaim sweeps",
		}),
		sweepSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aqualeads",
			Subsystem: "reclaimer",
			Name:      "sessions_reclaimed_total",
			Help:      "Total idle sessions saved as leads",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionsStarted, m.turnsTotal, m.leadsTotal, m.turnLatency, m.sweepsTotal, m.sweepSaved)
	return m
}

func (m *ChatbotMetrics) ObserveSessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

// ObserveTurn records one processed turn by outcome
// (advanced, fallback, validation_error).
func (m *ChatbotMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

// ObserveLeadCreated records one materialized lead by origin (flow, reclaimer).
func (m *ChatbotMetrics) ObserveLeadCreated(origin string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(origin).Inc()
}

func (m *ChatbotMetrics) ObserveTurnLatency(seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.Observe(seconds)
}

func (m *ChatbotMetrics) ObserveSweep(saved int) {
	if m == nil {
		return
	}
	m.sweepsTotal.Inc()
	m.sweepSaved.Add(float64(saved))
}
