package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsTotal, jobsDequeuedTotal) }

var jobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_jobs_total",
		Help: "Total number of jobs that reached a state, labeled by state.",
	},
	[]string{"state"}, // 'processed', 'error', 'not_supported'
)

var jobsDequeuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "relay_jobs_dequeued_total",
		Help: "Total number of due jobs picked up by the scheduler.",
	},
)

func IncJob(state string) {
	jobsTotal.WithLabelValues(norm(state)).Inc()
}

func IncDequeued() {
	jobsDequeuedTotal.Inc()
}
