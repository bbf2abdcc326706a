package notifications

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "barberqueue"

var (
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Send attempts by message kind, channel and status",
		},
		[]string{"kind", "channel", "status"},
	)

	notificationSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time to send notification",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel"},
	)
)

func recordNotificationSent(kind MessageKind, channel, status string) {
	notificationsSent.WithLabelValues(string(kind), channel, status).Inc()
}

func recordNotificationDuration(channel string, duration time.Duration) {
	notificationSendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

func sendStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsRetryable(err):
		return "retryable_error"
	default:
		return "permanent_error"
	}
}
