package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_queries_total",
			Help: "Total number of processed natural-language queries by outcome.",
		},
		[]string{"outcome"},
	)
	generationRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querydesk_generation_retries_total",
			Help: "Total number of SQL generation retry attempts after the first.",
		},
	)
	validationRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_validation_rejected_total",
			Help: "Total number of generated statements rejected by validation, by reason.",
		},
		[]string{"reason"},
	)
	llmRequestDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querydesk_llm_request_duration_seconds",
			Help:    "Completion request latency against the model provider.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "querydesk_active_sessions",
			Help: "Current count of sessions with conversation state.",
		},
	)
	schemaRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querydesk_schema_refresh_total",
			Help: "Total number of schema snapshot refresh attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		generationRetriesTotal,
		validationRejectedTotal,
		llmRequestDurationSeconds,
		activeSessions,
		schemaRefreshTotal,
	)
}

func ObserveQuery(outcome string) {
	queriesTotal.WithLabelValues(outcome).Inc()
}

func ObserveGenerationRetries(retries int) {
	if retries > 0 {
		generationRetriesTotal.Add(float64(retries))
	}
}

func ObserveValidationRejected(reason string) {
	validationRejectedTotal.WithLabelValues(reason).Inc()
}

func ObserveLLMRequest(elapsed time.Duration) {
	llmRequestDurationSeconds.Observe(elapsed.Seconds())
}

func SetActiveSessions(count int) {
	if count < 0 {
		count = 0
	}
	activeSessions.Set(float64(count))
}

func ObserveSchemaRefresh(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	schemaRefreshTotal.WithLabelValues(outcome).Inc()
}
