package queue

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrDuplicateEntry    = errors.New("phone is already waiting in this queue")
	ErrInvalidTransition = errors.New("invalid queue transition")
	ErrPersistence       = errors.New("queue store unavailable")
	ErrEntryNotFound     = errors.New("queue entry not found")
	ErrBarberNotFound    = errors.New("barber not found")
	ErrBarberUnavailable = errors.New("barber is not taking walk-ins")
	ErrNotOwner          = errors.New("queue belongs to another barber")
)

// persistenceError marks a store failure as ErrPersistence while keeping the cause.
// Domain errors reported by the store pass through unchanged.
func persistenceError(op string, err error) error {
	if errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrBarberNotFound) ||
		errors.Is(err, ErrDuplicateEntry) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
