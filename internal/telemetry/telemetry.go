package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide metrics exposed on /metrics.
var (
	ExecutionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_executions_started_total",
		Help: "Number of executions started.",
	})

	ExecutionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_executions_finished_total",
		Help: "Number of executions finished, by terminal status.",
	}, []string{"status"})

	StepsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_steps_executed_total",
		Help: "Number of plan steps started, by step type.",
	}, []string{"type"})

	PlansCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_plans_created_total",
		Help: "Number of planning requests, by outcome.",
	}, []string{"outcome"})

	LLMCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agent_llm_calls_total",
		Help: "Number of LLM completion calls.",
	})

	LLMErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agent_llm_errors_total",
		Help: "Number of failed LLM completion calls, by error kind.",
	}, []string{"kind"})

	LLMLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agent_llm_latency_seconds",
		Help:    "Latency of LLM completion calls.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)

// ObserveLLMCall records one completion call.
func ObserveLLMCall(start time.Time, errKind string) {
	LLMCalls.Inc()
	LLMLatency.Observe(time.Since(start).Seconds())
	if errKind != "" {
		LLMErrors.WithLabelValues(errKind).Inc()
	}
}
