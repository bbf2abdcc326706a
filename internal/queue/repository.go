// Package queue implements the walk-in queue: position assignment, the entry
// state machine, view projection and the HTTP surface.
package queue

import (
	"context"

	"github.com/bissquit/barber-queue/internal/domain"
)

// Repository is the persistence contract for queue entries.
// Update is atomic per entry; there is no cross-entry transaction.
type Repository interface {
	// Insert stores a new entry and sets its ID. JoinTime is set by the store when zero.
	Insert(ctx context.Context, entry *domain.QueueEntry) error
	Update(ctx context.Context, id string, patch domain.QueueEntryPatch) error
	Get(ctx context.Context, id string) (*domain.QueueEntry, error)

	// QueryActive returns waiting and in_progress entries ordered by position, then join time.
	QueryActive(ctx context.Context, barberID string) ([]domain.QueueEntry, error)
	// QueryByStatus returns entries with the given status ordered by join time.
	QueryByStatus(ctx context.Context, barberID string, status domain.QueueStatus) ([]domain.QueueEntry, error)
}

// BarberRepository provides the barber records a queue depends on.
type BarberRepository interface {
	GetBarber(ctx context.Context, id string) (*domain.Barber, error)
	UpdateAvailability(ctx context.Context, id string, acceptsWalkIns, isAvailable bool) (*domain.Barber, error)
}

// ChangeFeed pushes full active-entry snapshots of a barber's queue to subscribers.
type ChangeFeed interface {
	Publish(ctx context.Context, barberID string) error
	Subscribe(ctx context.Context, barberID string, onChange func(domain.QueueSnapshot)) (unsubscribe func(), err error)
}

// Notifier sends best-effort customer messages for queue transitions.
type Notifier interface {
	QueueConfirmation(ctx context.Context, barber *domain.Barber, entry domain.QueueEntry) error
	QueueAlert(ctx context.Context, barber *domain.Barber, entry domain.QueueEntry) error
	NextInLine(ctx context.Context, barber *domain.Barber, entry domain.QueueEntry) error
}
