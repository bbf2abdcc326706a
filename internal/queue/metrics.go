package queue

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "barberqueue"

var (
	queueTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "transitions_total",
			Help:      "Queue operations by action and result",
		},
		[]string{"action", "result"},
	)

	queueActiveEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "active_entries",
			Help:      "Active entries of a queue observed at recompute",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	queuePositionsRewritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "positions_rewritten_total",
			Help:      "Entries whose position changed during recompute",
		},
	)
)

func recordTransition(action Action, err error) {
	queueTransitions.WithLabelValues(string(action), transitionResult(err)).Inc()
}

func recordRecompute(active, rewritten int) {
	queueActiveEntries.Observe(float64(active))
	queuePositionsRewritten.Add(float64(rewritten))
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDuplicateEntry):
		return "duplicate"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrEntryNotFound), errors.Is(err, ErrBarberNotFound):
		return "not_found"
	case errors.Is(err, ErrBarberUnavailable):
		return "unavailable"
	default:
		return "persistence_error"
	}
}
