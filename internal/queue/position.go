package queue

import (
	"context"
	"fmt"

	"github.com/bissquit/barber-queue/internal/domain"
)

// PositionAssigner computes positions for new entrants and repairs positions after completions.
type PositionAssigner struct {
	repo Repository
}

// NewPositionAssigner creates a new position assigner.
func NewPositionAssigner(repo Repository) *PositionAssigner {
	return &PositionAssigner{repo: repo}
}

// AssignOnJoin returns the position for a new entrant. active must hold only
// the barber's currently active entries.
func (a *PositionAssigner) AssignOnJoin(active []domain.QueueEntry) int {
	return len(active) + 1
}

// RecomputeAfterCompletion rewrites positions of the barber's active entries to
// their rank by join time, in_progress entries first. Entries already at their
// rank are not written, so a second run without intervening changes is a no-op.
// It returns the active entries in their new order.
func (a *PositionAssigner) RecomputeAfterCompletion(ctx context.Context, barberID string) ([]domain.QueueEntry, error) {
	ordered, _, err := a.recompute(ctx, barberID)
	return ordered, err
}

// recompute is RecomputeAfterCompletion that also reports the waiting entry
// this run moved to position 1, if any.
func (a *PositionAssigner) recompute(ctx context.Context, barberID string) ([]domain.QueueEntry, *domain.QueueEntry, error) {
	inProgress, err := a.repo.QueryByStatus(ctx, barberID, domain.QueueStatusInProgress)
	if err != nil {
		return nil, nil, persistenceError("query in progress entries", err)
	}

	waiting, err := a.repo.QueryByStatus(ctx, barberID, domain.QueueStatusWaiting)
	if err != nil {
		return nil, nil, persistenceError("query waiting entries", err)
	}

	ordered := make([]domain.QueueEntry, 0, len(inProgress)+len(waiting))
	ordered = append(ordered, inProgress...)
	ordered = append(ordered, waiting...)

	var promoted *domain.QueueEntry
	rewritten := 0
	for i := range ordered {
		rank := i + 1
		if ordered[i].Position == rank {
			continue
		}
		if err := a.repo.Update(ctx, ordered[i].ID, domain.QueueEntryPatch{Position: &rank}); err != nil {
			return nil, nil, persistenceError(fmt.Sprintf("update position of %s", ordered[i].ID), err)
		}
		ordered[i].Position = rank
		rewritten++

		if rank == 1 && ordered[i].Status == domain.QueueStatusWaiting {
			e := ordered[i]
			promoted = &e
		}
	}

	recordRecompute(len(ordered), rewritten)
	return ordered, promoted, nil
}

// firstWaiting returns the lowest ranked waiting entry, or nil.
func firstWaiting(ordered []domain.QueueEntry) *domain.QueueEntry {
	for i := range ordered {
		if ordered[i].Status == domain.QueueStatusWaiting {
			e := ordered[i]
			return &e
		}
	}
	return nil
}
