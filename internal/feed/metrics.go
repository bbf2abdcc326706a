package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "barberqueue"

var (
	subscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "subscribers",
			Help:      "Number of active change feed subscribers",
		},
	)

	snapshotsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "snapshots_delivered_total",
			Help:      "Snapshots offered to subscribers",
		},
	)

	publishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "publish_failures_total",
			Help:      "Change feed failures by stage",
		},
		[]string{"stage"},
	)
)

func recordDelivered(count int) {
	snapshotsDelivered.Add(float64(count))
}

func recordPublishFailure(stage string) {
	publishFailures.WithLabelValues(stage).Inc()
}
