package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	GenerationValid   = "valid"
	GenerationInvalid = "invalid"
	GenerationError   = "error"
)

var (
	questionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlask_questions_total",
			Help: "Total number of questions submitted to the pipeline.",
		},
	)
	generationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_query_generation_attempts_total",
			Help: "Query generation attempts by outcome (valid, invalid, error).",
		},
		[]string{"outcome"},
	)
	generationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlask_query_generation_failures_total",
			Help: "Questions for which no valid query was produced within the attempt budget.",
		},
	)
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlask_query_executions_total",
			Help: "Executed queries by status (ok, failed).",
		},
		[]string{"status"},
	)
	executionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlask_query_execution_duration_seconds",
			Help:    "Latency of generated query execution.",
			Buckets: prometheus.DefBuckets,
		},
	)
	stepDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlask_pipeline_step_duration_seconds",
			Help:    "Pipeline step latency by step and status.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"step", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		questionsTotal,
		generationAttemptsTotal,
		generationFailuresTotal,
		executionsTotal,
		executionDurationSeconds,
		stepDurationSeconds,
	)
}

func IncrementQuestions() {
	questionsTotal.Inc()
}

func ObserveGenerationAttempt(outcome string) {
	generationAttemptsTotal.WithLabelValues(outcome).Inc()
}

func IncrementGenerationFailure() {
	generationFailuresTotal.Inc()
}

func ObserveExecution(ok bool, elapsed time.Duration) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	executionsTotal.WithLabelValues(status).Inc()
	executionDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveStep(step string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	stepDurationSeconds.WithLabelValues(step, status).Observe(elapsed.Seconds())
}
