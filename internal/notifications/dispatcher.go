package notifications

import (
	"context"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/pkg/ctxlog"
)

// Dispatcher renders messages and hands them to the configured channels.
type Dispatcher struct {
	renderer *Renderer
	senders  map[domain.ChannelType]Sender
	primary  domain.ChannelType
	fallback domain.ChannelType
}

// NewDispatcher creates a new notification dispatcher. fallback may be empty.
func NewDispatcher(renderer *Renderer, primary, fallback domain.ChannelType, senders ...Sender) *Dispatcher {
	senderMap := make(map[domain.ChannelType]Sender)
	for _, s := range senders {
		senderMap[s.Type()] = s
	}
	if fallback == primary {
		fallback = ""
	}
	return &Dispatcher{
		renderer: renderer,
		senders:  senderMap,
		primary:  primary,
		fallback: fallback,
	}
}

// Send delivers msg to phone over the primary channel, trying the fallback
// channel once if the primary fails. It reports whether any channel accepted
// the message. Errors are logged, never returned.
func (d *Dispatcher) Send(ctx context.Context, phone string, msg Message) bool {
	logger := ctxlog.FromContext(ctx)

	channels := []domain.ChannelType{d.primary}
	if d.fallback != "" {
		channels = append(channels, d.fallback)
	}

	for _, channel := range channels {
		sender, ok := d.senders[channel]
		if !ok {
			logger.Warn("no sender for channel type", "type", channel)
			continue
		}

		err := d.sendVia(ctx, sender, phone, msg)
		if err == nil {
			return true
		}

		logger.Error("failed to send notification",
			"channel_type", channel,
			"kind", msg.Kind,
			"phone", maskPhone(phone),
			"retryable", IsRetryable(err),
			"error", err,
		)
	}

	return false
}

func (d *Dispatcher) sendVia(ctx context.Context, sender Sender, phone string, msg Message) error {
	channel := sender.Type()

	body, err := d.renderer.Render(channel, msg)
	if err != nil {
		recordNotificationSent(msg.Kind, string(channel), "render_error")
		return err
	}

	start := time.Now()
	err = sender.Send(ctx, Notification{To: phone, Body: body})
	recordNotificationDuration(string(channel), time.Since(start))
	recordNotificationSent(msg.Kind, string(channel), sendStatus(err))

	return err
}

// maskPhone keeps the last four digits of a phone number for logging.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
