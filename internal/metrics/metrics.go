package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_judge"

var (
	HTTPRequestInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "Number of HTTP requests currently being served",
	})

	// labels: method, endpoint, status
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	HTTPRequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Evaluations settled, by verdict",
	}, []string{"verdict"})

	// labels: provider, outcome (success|error|timeout)
	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "Duration of LLM provider calls",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"provider", "outcome"})

	ParseStrategyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_strategy_total",
		Help:      "LLM responses by the parse strategy that accepted them, 'failed' when none did",
	}, []string{"strategy"})

	LimiterInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "limiter_in_flight",
		Help:      "Evaluation tasks currently executing",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Finalized runs, by status",
	}, []string{"status"})
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)
