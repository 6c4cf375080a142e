package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Crew execution metrics
	TaskExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finwiz_task_executions_total",
			Help: "Total number of task executions by terminal state",
		},
		[]string{"crew", "state"},
	)

	TaskRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finwiz_task_retries_total",
			Help: "Total number of task retry attempts",
		},
		[]string{"crew"},
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finwiz_task_duration_seconds",
			Help:    "Task execution duration including retries",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"crew"},
	)

	// Knowledge store metrics
	KnowledgeWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finwiz_knowledge_writes_total",
			Help: "Total number of knowledge entries written",
		},
		[]string{"category"},
	)

	KnowledgePruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finwiz_knowledge_pruned_total",
			Help: "Total number of knowledge entries soft-deleted by retention sweeps",
		},
	)

	// Tool metrics
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finwiz_tool_calls_total",
			Help: "Total number of tool invocations by outcome",
		},
		[]string{"tool", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		TaskExecutions,
		TaskRetries,
		TaskDuration,
		KnowledgeWrites,
		KnowledgePruned,
		ToolCalls,
	)
}

// Handler returns the HTTP handler exposing the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts the metrics endpoint on the given address.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() { _ = srv.ListenAndServe() }()
	return srv
}
