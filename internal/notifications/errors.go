package notifications

import (
	"errors"
	"fmt"

	"github.com/bissquit/barber-queue/internal/domain"
)

// ErrNotDelivered is returned when no channel accepted a message.
var ErrNotDelivered = errors.New("notification not delivered")

// PermanentError indicates a provider rejection that will not succeed on retry.
type PermanentError struct {
	Channel domain.ChannelType
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s error %d: %s", e.Channel, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Channel, e.Message)
}

// IsRetryable returns false as permanent errors should not be retried.
func (e *PermanentError) IsRetryable() bool { return false }

// RetryableError indicates a temporary provider failure.
type RetryableError struct {
	Channel domain.ChannelType
	Code    int
	Message string
}

func (e *RetryableError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s error %d: %s", e.Channel, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Channel, e.Message)
}

// IsRetryable returns true as these errors are temporary.
func (e *RetryableError) IsRetryable() bool { return true }

// IsRetryable checks if an error is temporary.
func IsRetryable(err error) bool {
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}
