package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(digestSyncTotal) }

var digestSyncTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_digest_sync_total",
		Help: "Status digest synchronization outcomes.",
	},
	[]string{"outcome"}, // 'created', 'edited', 'recreated', 'unchanged', 'failed'
)

func IncDigestSync(outcome string) {
	digestSyncTotal.WithLabelValues(norm(outcome)).Inc()
}
