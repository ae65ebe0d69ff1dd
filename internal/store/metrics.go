package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WritesTotal counts session writes.
	// Labels: op (create, update), outcome (ok, conflict, not_found, error)
	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interviewd",
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Total number of session writes by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// QueryDuration tracks store operation latency.
	// Labels: op
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "interviewd",
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// BankImports counts bank entries written by Import.
	// Labels: kind (user, module, question)
	BankImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interviewd",
			Subsystem: "store",
			Name:      "bank_imports_total",
			Help:      "Total number of question bank entries imported",
		},
		[]string{"kind"},
	)
)

func observe(op string) func() {
	timer := prometheus.NewTimer(QueryDuration.WithLabelValues(op))
	return func() { timer.ObserveDuration() }
}
