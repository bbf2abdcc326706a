// Package notifications delivers walk-in queue messages to customers over WhatsApp and SMS.
package notifications

import (
	"context"

	"github.com/bissquit/barber-queue/internal/domain"
)

// Notification is a rendered message addressed to one phone number.
type Notification struct {
	To   string
	Body string
}

// Sender delivers notifications over one channel.
type Sender interface {
	Type() domain.ChannelType
	Send(ctx context.Context, notification Notification) error
}

// MessageKind identifies which queue event a message announces.
type MessageKind string

// Message kinds.
const (
	KindQueueConfirmation MessageKind = "queue_confirmation"
	KindQueueAlert        MessageKind = "queue_alert"
	KindNextInLine        MessageKind = "next_in_line"
)

var messageKinds = []MessageKind{KindQueueConfirmation, KindQueueAlert, KindNextInLine}

// MessageData holds template parameters.
type MessageData struct {
	SalonName            string
	BarberName           string
	CustomerName         string
	Position             int
	EstimatedWaitMinutes int
}

// Message is a message kind with its parameters, rendered per channel at send time.
type Message struct {
	Kind MessageKind
	Data MessageData
}
