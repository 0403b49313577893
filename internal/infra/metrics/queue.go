package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(queueDepth, backlogShiftsTotal) }

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "relay_queue_depth",
		Help: "Current number of queued jobs per state.",
	},
	[]string{"state"}, // 'waiting', 'processing', 'error'
)

var backlogShiftsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "relay_backlog_shifts_total",
		Help: "Total number of per-user backlog reschedules performed at startup reconciliation.",
	},
)

func SetQueueDepth(state string, n int64) {
	queueDepth.WithLabelValues(norm(state)).Set(float64(n))
}

func AddBacklogShifts(n int) {
	backlogShiftsTotal.Add(float64(n))
}
