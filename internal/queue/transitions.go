package queue

import (
	"fmt"

	"github.com/bissquit/barber-queue/internal/domain"
)

// Action is a barber or customer operation on a queue entry.
type Action string

// Actions.
const (
	ActionJoin      Action = "join"
	ActionStart     Action = "start"
	ActionComplete  Action = "complete"
	ActionRecompute Action = "recompute"
)

// transitions maps an action to the status it is allowed from and the status it leads to.
var transitions = map[Action]struct {
	from domain.QueueStatus
	to   domain.QueueStatus
}{
	ActionStart:    {from: domain.QueueStatusWaiting, to: domain.QueueStatusInProgress},
	ActionComplete: {from: domain.QueueStatusInProgress, to: domain.QueueStatusCompleted},
}

// nextStatus returns the status an entry moves to when action is applied,
// or ErrInvalidTransition.
func nextStatus(action Action, from domain.QueueStatus) (domain.QueueStatus, error) {
	t, ok := transitions[action]
	if !ok || t.from != from {
		return "", fmt.Errorf("%w: cannot %s entry in status %s", ErrInvalidTransition, action, from)
	}
	return t.to, nil
}
