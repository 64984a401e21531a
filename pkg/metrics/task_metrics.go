// Package metrics provides Prometheus metrics for monitoring the standup
// tracker's task pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// taskMutationsTotal records the total number of single-task mutations.
	// Labels:
	//   - op: Mutation operation (e.g., "set_completed", "set_priority", "delete")
	//   - status: Outcome (e.g., "success", "not_found", "invalid", "conflict")
	taskMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "standup_task_mutations_total",
			Help: "Total number of single-task mutation operations",
		},
		[]string{"op", "status"},
	)

	// mutationRetriesTotal records optimistic-write retries caused by
	// concurrent mutations on the same update row.
	mutationRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "standup_task_mutation_retries_total",
			Help: "Total number of optimistic-concurrency retries during task mutations",
		},
	)

	// feedQueryDuration records the duration of task feed queries.
	// Labels:
	//   - view: Query view (e.g., "list", "analytics", "daily_report")
	// Buckets: 1ms .. 5s
	feedQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "standup_feed_query_duration_seconds",
			Help:    "Duration of task feed projection queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"view"},
	)

	// decodeFailuresTotal records stored task lists that failed to decode and
	// were skipped by read paths.
	decodeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "standup_task_decode_failures_total",
			Help: "Total number of stored task lists that failed to decode",
		},
	)
)

func init() {
	prometheus.MustRegister(taskMutationsTotal)
	prometheus.MustRegister(mutationRetriesTotal)
	prometheus.MustRegister(feedQueryDuration)
	prometheus.MustRegister(decodeFailuresTotal)
}

// RecordTaskMutation records a single-task mutation outcome.
func RecordTaskMutation(op, status string) {
	taskMutationsTotal.WithLabelValues(op, status).Inc()
}

// RecordMutationRetry records one optimistic-concurrency retry.
func RecordMutationRetry() {
	mutationRetriesTotal.Inc()
}

// RecordFeedQueryDuration records the duration of a feed query.
func RecordFeedQueryDuration(view string, durationSeconds float64) {
	feedQueryDuration.WithLabelValues(view).Observe(durationSeconds)
}

// RecordDecodeFailure records a stored task list that failed to decode.
func RecordDecodeFailure() {
	decodeFailuresTotal.Inc()
}
