package notifications

import (
	"context"
	"fmt"

	"github.com/bissquit/barber-queue/internal/domain"
)

// Notifier turns queue transitions into customer messages.
type Notifier struct {
	dispatcher *Dispatcher
}

// NewNotifier creates a new Notifier.
func NewNotifier(dispatcher *Dispatcher) *Notifier {
	return &Notifier{dispatcher: dispatcher}
}

// QueueConfirmation tells a customer that they joined the queue.
func (n *Notifier) QueueConfirmation(ctx context.Context, barber *domain.Barber, entry domain.QueueEntry) error {
	return n.notify(ctx, KindQueueConfirmation, barber, entry)
}

// QueueAlert tells a customer that they are next.
func (n *Notifier) QueueAlert(ctx context.Context, barber *domain.Barber, entry domain.QueueEntry) error {
	return n.notify(ctx, KindQueueAlert, barber, entry)
}

// NextInLine tells a customer their new place in line.
func (n *Notifier) NextInLine(ctx context.Context, barber *domain.Barber, entry domain.QueueEntry) error {
	return n.notify(ctx, KindNextInLine, barber, entry)
}

func (n *Notifier) notify(ctx context.Context, kind MessageKind, barber *domain.Barber, entry domain.QueueEntry) error {
	msg := Message{
		Kind: kind,
		Data: MessageData{
			CustomerName:         entry.CustomerName,
			Position:             entry.Position,
			EstimatedWaitMinutes: entry.EstimatedWaitMinutes,
		},
	}
	if barber != nil {
		msg.Data.SalonName = barber.SalonName
		msg.Data.BarberName = barber.Name
	}

	if !n.dispatcher.Send(ctx, entry.Phone, msg) {
		return fmt.Errorf("%s to entry %s: %w", kind, entry.ID, ErrNotDelivered)
	}
	return nil
}
