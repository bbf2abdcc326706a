package queue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/pkg/ctxlog"
)

// DefaultAverageServiceMinutes is used when no average service time is configured.
const DefaultAverageServiceMinutes = 20

// DefaultNotifyTimeout bounds the messages sent for one transition, fallback included.
const DefaultNotifyTimeout = time.Minute

const publishTimeout = 5 * time.Second

// Config contains queue service configuration.
type Config struct {
	AverageServiceMinutes int
	NotifyTimeout         time.Duration
}

// Service implements the walk-in queue state machine.
type Service struct {
	repo      Repository
	barbers   BarberRepository
	feed      ChangeFeed
	notifier  Notifier
	assigner  *PositionAssigner
	projector *Projector
	config    Config
	now       func() time.Time

	// pending tracks notifications still being delivered.
	pending sync.WaitGroup
}

// NewService creates a new queue service. feed and notifier may be nil.
func NewService(repo Repository, barbers BarberRepository, feed ChangeFeed, notifier Notifier, config Config) *Service {
	if config.AverageServiceMinutes <= 0 {
		config.AverageServiceMinutes = DefaultAverageServiceMinutes
	}
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = DefaultNotifyTimeout
	}
	return &Service{
		repo:      repo,
		barbers:   barbers,
		feed:      feed,
		notifier:  notifier,
		assigner:  NewPositionAssigner(repo),
		projector: NewProjector(config.AverageServiceMinutes),
		config:    config,
		now:       time.Now,
	}
}

// JoinInput holds data for joining a queue.
type JoinInput struct {
	BarberID     string
	CustomerName string
	Phone        string
}

// Join adds a customer to a barber's walk-in queue as waiting.
func (s *Service) Join(ctx context.Context, input JoinInput) (*domain.QueueEntry, error) {
	phone := domain.NormalizePhone(input.Phone)

	barber, err := s.barbers.GetBarber(ctx, input.BarberID)
	if err != nil {
		recordTransition(ActionJoin, err)
		return nil, persistenceError("get barber", err)
	}
	if !barber.CanTakeWalkIns() {
		recordTransition(ActionJoin, ErrBarberUnavailable)
		return nil, ErrBarberUnavailable
	}

	active, err := s.repo.QueryActive(ctx, barber.ID)
	if err != nil {
		recordTransition(ActionJoin, err)
		return nil, persistenceError("query active entries", err)
	}

	for _, e := range active {
		if e.Status == domain.QueueStatusWaiting && e.Phone == phone {
			recordTransition(ActionJoin, ErrDuplicateEntry)
			return nil, ErrDuplicateEntry
		}
	}

	position := s.assigner.AssignOnJoin(active)
	entry := &domain.QueueEntry{
		BarberID:             barber.ID,
		CustomerName:         strings.TrimSpace(input.CustomerName),
		Phone:                phone,
		Position:             position,
		JoinTime:             s.now().UTC(),
		Status:               domain.QueueStatusWaiting,
		EstimatedWaitMinutes: s.projector.EstimatedWait(position),
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		recordTransition(ActionJoin, err)
		return nil, persistenceError("insert entry", err)
	}
	recordTransition(ActionJoin, nil)

	ctxlog.FromContext(ctx).Info("customer joined queue",
		"barber_id", entry.BarberID,
		"entry_id", entry.ID,
		"position", entry.Position,
	)

	s.publish(ctx, entry.BarberID)

	confirmed := *entry
	s.dispatch(ctx, func(ctx context.Context) {
		if err := s.notifier.QueueConfirmation(ctx, barber, confirmed); err != nil {
			logNotificationError(ctx, "queue_confirmation", &confirmed, err)
		}
	})

	return entry, nil
}

// Start moves a waiting entry to in_progress. Only the owning barber may start an entry.
func (s *Service) Start(ctx context.Context, entryID string, viewer domain.Viewer) (*domain.QueueEntry, error) {
	entry, next, err := s.prepareTransition(ctx, ActionStart, entryID, viewer)
	if err != nil {
		recordTransition(ActionStart, err)
		return nil, err
	}

	if err := s.repo.Update(ctx, entry.ID, domain.QueueEntryPatch{Status: &next}); err != nil {
		recordTransition(ActionStart, err)
		return nil, persistenceError("update status", err)
	}
	entry.Status = next
	recordTransition(ActionStart, nil)

	ctxlog.FromContext(ctx).Info("queue entry started",
		"barber_id", entry.BarberID,
		"entry_id", entry.ID,
		"position", entry.Position,
	)

	s.publish(ctx, entry.BarberID)
	return entry, nil
}

// Complete moves an in_progress entry to completed, recomputes positions of the
// remaining entries and alerts the customer who is now first in line.
func (s *Service) Complete(ctx context.Context, entryID string, viewer domain.Viewer) (*domain.QueueEntry, error) {
	entry, next, err := s.prepareTransition(ctx, ActionComplete, entryID, viewer)
	if err != nil {
		recordTransition(ActionComplete, err)
		return nil, err
	}

	if err := s.repo.Update(ctx, entry.ID, domain.QueueEntryPatch{Status: &next}); err != nil {
		recordTransition(ActionComplete, err)
		return nil, persistenceError("update status", err)
	}
	entry.Status = next
	recordTransition(ActionComplete, nil)

	ordered, err := s.assigner.RecomputeAfterCompletion(ctx, entry.BarberID)
	if err != nil {
		// The completion is committed. Recompute repairs positions and alerts the new head.
		ctxlog.FromContext(ctx).Error("failed to recompute positions after completion",
			"barber_id", entry.BarberID,
			"entry_id", entry.ID,
			"error", err,
		)
		s.publish(ctx, entry.BarberID)
		return entry, nil
	}

	ctxlog.FromContext(ctx).Info("queue entry completed",
		"barber_id", entry.BarberID,
		"entry_id", entry.ID,
		"remaining", len(ordered),
	)

	s.publish(ctx, entry.BarberID)
	s.notifySuccessor(ctx, entry.BarberID, firstWaiting(ordered))

	return entry, nil
}

// Recompute repairs positions of a barber's queue. Only the owning barber may call it.
func (s *Service) Recompute(ctx context.Context, barberID string, viewer domain.Viewer) ([]domain.QueueEntry, error) {
	if !viewer.Owns(barberID) {
		recordTransition(ActionRecompute, ErrNotOwner)
		return nil, ErrNotOwner
	}

	ordered, promoted, err := s.assigner.recompute(ctx, barberID)
	if err != nil {
		recordTransition(ActionRecompute, err)
		return nil, err
	}
	recordTransition(ActionRecompute, nil)

	s.publish(ctx, barberID)
	// A waiting entry only reaches position 1 here when a completion left the queue unrepaired.
	s.notifySuccessor(ctx, barberID, promoted)

	return ordered, nil
}

// View returns the projected queue of a barber for viewer.
func (s *Service) View(ctx context.Context, barberID string, viewer domain.Viewer) (*QueueView, error) {
	if _, err := s.barbers.GetBarber(ctx, barberID); err != nil {
		return nil, persistenceError("get barber", err)
	}

	active, err := s.repo.QueryActive(ctx, barberID)
	if err != nil {
		return nil, persistenceError("query active entries", err)
	}

	view := s.projector.Project(barberID, active, viewer)
	return &view, nil
}

// Subscribe streams projected views of a barber's queue to onView until the
// returned function is called.
func (s *Service) Subscribe(ctx context.Context, barberID string, viewer domain.Viewer, onView func(QueueView)) (func(), error) {
	if s.feed == nil {
		return nil, errors.New("change feed not configured")
	}
	if _, err := s.barbers.GetBarber(ctx, barberID); err != nil {
		return nil, persistenceError("get barber", err)
	}

	return s.feed.Subscribe(ctx, barberID, func(snapshot domain.QueueSnapshot) {
		onView(s.projector.Project(snapshot.BarberID, snapshot.Entries, viewer))
	})
}

// UpdateAvailability changes whether a barber takes walk-ins.
func (s *Service) UpdateAvailability(ctx context.Context, barberID string, viewer domain.Viewer, acceptsWalkIns, isAvailable bool) (*domain.Barber, error) {
	if !viewer.Owns(barberID) {
		return nil, ErrNotOwner
	}

	barber, err := s.barbers.UpdateAvailability(ctx, barberID, acceptsWalkIns, isAvailable)
	if err != nil {
		return nil, persistenceError("update availability", err)
	}

	ctxlog.FromContext(ctx).Info("barber availability updated",
		"barber_id", barberID,
		"accepts_walkins", acceptsWalkIns,
		"is_available", isAvailable,
	)
	return barber, nil
}

// prepareTransition loads an entry, checks ownership and returns the target status.
// It does not write anything.
func (s *Service) prepareTransition(ctx context.Context, action Action, entryID string, viewer domain.Viewer) (*domain.QueueEntry, domain.QueueStatus, error) {
	entry, err := s.repo.Get(ctx, entryID)
	if err != nil {
		return nil, "", persistenceError("get entry", err)
	}

	if !viewer.Owns(entry.BarberID) {
		return nil, "", ErrNotOwner
	}

	next, err := nextStatus(action, entry.Status)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("rejected queue transition",
			"entry_id", entry.ID,
			"action", action,
			"status", entry.Status,
		)
		return nil, "", err
	}

	return entry, next, nil
}

// barberForMessages loads the barber for message templates, falling back to a bare record.
func (s *Service) barberForMessages(ctx context.Context, barberID string) *domain.Barber {
	barber, err := s.barbers.GetBarber(ctx, barberID)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("failed to load barber for notification",
			"barber_id", barberID,
			"error", err,
		)
		return &domain.Barber{ID: barberID}
	}
	return barber
}

// Drain waits for in-flight notifications or until ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// notifySuccessor sends the queue alert and the next-in-line update to the
// customer who is now first among the waiting entries.
func (s *Service) notifySuccessor(ctx context.Context, barberID string, successor *domain.QueueEntry) {
	if successor == nil {
		return
	}
	next := *successor
	next.EstimatedWaitMinutes = s.projector.EstimatedWait(next.Position)

	s.dispatch(ctx, func(ctx context.Context) {
		barber := s.barberForMessages(ctx, barberID)
		// Both messages are sent; each is best effort on its own.
		if err := s.notifier.QueueAlert(ctx, barber, next); err != nil {
			logNotificationError(ctx, "queue_alert", &next, err)
		}
		if err := s.notifier.NextInLine(ctx, barber, next); err != nil {
			logNotificationError(ctx, "next_in_line", &next, err)
		}
	})
}

// dispatch runs send in the background, detached from the caller's cancellation
// and bounded by the notify timeout.
func (s *Service) dispatch(ctx context.Context, send func(ctx context.Context)) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.NotifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		send(ctx)
	}()
}

// publish announces a committed change. It does not depend on the caller's
// context staying alive.
func (s *Service) publish(ctx context.Context, barberID string) {
	if s.feed == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.feed.Publish(ctx, barberID); err != nil {
		ctxlog.FromContext(ctx).Error("failed to publish queue change",
			"barber_id", barberID,
			"error", err,
		)
	}
}

func logNotificationError(ctx context.Context, kind string, entry *domain.QueueEntry, err error) {
	ctxlog.FromContext(ctx).LogAttrs(ctx, slog.LevelWarn, "queue notification failed",
		slog.String("kind", kind),
		slog.String("entry_id", entry.ID),
		slog.String("barber_id", entry.BarberID),
		slog.Any("error", err),
	)
}
