package digest

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports pipeline counters in Prometheus format.
type Metrics struct {
	topics           *prometheus.CounterVec
	summarizeLatency prometheus.Histogram
	tokens           *prometheus.CounterVec
}

// Topic outcome labels.
const (
	OutcomeSummarized       = "summarized"
	OutcomeSkippedUnchanged = "skipped_unchanged"
	OutcomeSkippedEmpty     = "skipped_empty"
	OutcomeCacheHit         = "cache_hit"
	OutcomeFailed           = "failed"
)

// NewMetrics creates pipeline metrics registered on the given registry.
// A nil registry creates a standalone (unexported) set, used in tests.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		topics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forumdigest",
				Name:      "topics_total",
				Help:      "Topics processed by outcome",
			},
			[]string{"outcome"},
		),
		summarizeLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "forumdigest",
				Name:      "summarize_latency_seconds",
				Help:      "Wall time of successful summarization calls",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 240},
			},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "forumdigest",
				Name:      "llm_tokens_total",
				Help:      "Tokens consumed by direction",
			},
			[]string{"direction"},
		),
	}
	if registry != nil {
		registry.MustRegister(m.topics, m.summarizeLatency, m.tokens)
	}
	return m
}

func (m *Metrics) observeOutcome(outcome string) {
	m.topics.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSummarize(seconds float64, inputTokens, outputTokens int) {
	m.summarizeLatency.Observe(seconds)
	m.tokens.WithLabelValues("input").Add(float64(inputTokens))
	m.tokens.WithLabelValues("output").Add(float64(outputTokens))
}
