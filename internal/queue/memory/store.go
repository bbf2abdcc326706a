// Package memory provides an in-process queue store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/queue"
	"github.com/google/uuid"
)

// Store keeps queue entries and barbers in memory.
type Store struct {
	mu      sync.RWMutex
	entries map[string]domain.QueueEntry
	barbers map[string]domain.Barber
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]domain.QueueEntry),
		barbers: make(map[string]domain.Barber),
		now:     time.Now,
	}
}

// PutBarber creates or replaces a barber.
func (s *Store) PutBarber(b domain.Barber) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	s.barbers[b.ID] = b
}

// Insert stores a new entry with a generated ID.
func (s *Store) Insert(_ context.Context, entry *domain.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Status == domain.QueueStatusWaiting {
		for _, e := range s.entries {
			if e.BarberID == entry.BarberID && e.Phone == entry.Phone && e.Status == domain.QueueStatusWaiting {
				return queue.ErrDuplicateEntry
			}
		}
	}

	entry.ID = uuid.New().String()
	if entry.JoinTime.IsZero() {
		entry.JoinTime = s.now().UTC()
	}
	s.entries[entry.ID] = *entry
	return nil
}

// Update applies patch to the entry with the given ID.
func (s *Store) Update(_ context.Context, id string, patch domain.QueueEntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return queue.ErrEntryNotFound
	}
	if patch.IsEmpty() {
		return nil
	}

	if patch.Status != nil && *patch.Status == domain.QueueStatusWaiting && e.Status != domain.QueueStatusWaiting {
		for otherID, other := range s.entries {
			if otherID != id && other.BarberID == e.BarberID && other.Phone == e.Phone &&
				other.Status == domain.QueueStatusWaiting {
				return queue.ErrDuplicateEntry
			}
		}
	}

	patch.Apply(&e)
	s.entries[id] = e
	return nil
}

// Get returns the entry with the given ID.
func (s *Store) Get(_ context.Context, id string) (*domain.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, queue.ErrEntryNotFound
	}
	return &e, nil
}

// QueryActive returns waiting and in_progress entries ordered by position, then join time.
func (s *Store) QueryActive(_ context.Context, barberID string) ([]domain.QueueEntry, error) {
	result := s.filter(func(e domain.QueueEntry) bool {
		return e.BarberID == barberID && e.Status.IsActive()
	})

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Position != result[j].Position {
			return result[i].Position < result[j].Position
		}
		return result[i].JoinTime.Before(result[j].JoinTime)
	})
	return result, nil
}

// QueryByStatus returns entries with status ordered by join time.
func (s *Store) QueryByStatus(_ context.Context, barberID string, status domain.QueueStatus) ([]domain.QueueEntry, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown queue status %q", status)
	}

	result := s.filter(func(e domain.QueueEntry) bool {
		return e.BarberID == barberID && e.Status == status
	})

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].JoinTime.Equal(result[j].JoinTime) {
			return result[i].JoinTime.Before(result[j].JoinTime)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetBarber returns the barber with the given ID.
func (s *Store) GetBarber(_ context.Context, id string) (*domain.Barber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.barbers[id]
	if !ok {
		return nil, queue.ErrBarberNotFound
	}
	return &b, nil
}

// UpdateAvailability sets the walk-in flags of a barber.
func (s *Store) UpdateAvailability(_ context.Context, id string, acceptsWalkIns, isAvailable bool) (*domain.Barber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.barbers[id]
	if !ok {
		return nil, queue.ErrBarberNotFound
	}
	b.AcceptsWalkIns = acceptsWalkIns
	b.IsAvailable = isAvailable
	b.UpdatedAt = s.now().UTC()
	s.barbers[id] = b
	return &b, nil
}

func (s *Store) filter(keep func(domain.QueueEntry) bool) []domain.QueueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.QueueEntry, 0)
	for _, e := range s.entries {
		if keep(e) {
			result = append(result, e)
		}
	}
	return result
}
