package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	channel domain.ChannelType
	err     error

	mu   sync.Mutex
	sent []Notification
}

func (f *fakeSender) Type() domain.ChannelType { return f.channel }

func (f *fakeSender) Send(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeSender) calls() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

var alertMessage = Message{
	Kind: KindQueueAlert,
	Data: MessageData{SalonName: "Fresh Cuts", CustomerName: "bola", Position: 1},
}

func TestDispatcher_Send_Primary(t *testing.T) {
	wa := &fakeSender{channel: domain.ChannelTypeWhatsApp}
	sms := &fakeSender{channel: domain.ChannelTypeSMS}
	d := NewDispatcher(newTestRenderer(t), domain.ChannelTypeWhatsApp, domain.ChannelTypeSMS, wa, sms)

	ok := d.Send(context.Background(), "+2348000000001", alertMessage)

	assert.True(t, ok)
	require.Len(t, wa.calls(), 1)
	assert.Equal(t, "+2348000000001", wa.calls()[0].To)
	assert.Contains(t, wa.calls()[0].Body, "you're next at *Fresh Cuts*")
	assert.Empty(t, sms.calls())
}

func TestDispatcher_Send_FallsBackOnce(t *testing.T) {
	wa := &fakeSender{channel: domain.ChannelTypeWhatsApp, err: &RetryableError{Channel: domain.ChannelTypeWhatsApp, Code: 503}}
	sms := &fakeSender{channel: domain.ChannelTypeSMS}
	d := NewDispatcher(newTestRenderer(t), domain.ChannelTypeWhatsApp, domain.ChannelTypeSMS, wa, sms)

	ok := d.Send(context.Background(), "+2348000000001", alertMessage)

	assert.True(t, ok)
	assert.Len(t, wa.calls(), 1)
	require.Len(t, sms.calls(), 1)
	assert.Equal(t, "Fresh Cuts: Bola, you're next! Please head over now.", sms.calls()[0].Body)
}

func TestDispatcher_Send_AllChannelsFail(t *testing.T) {
	wa := &fakeSender{channel: domain.ChannelTypeWhatsApp, err: errors.New("boom")}
	sms := &fakeSender{channel: domain.ChannelTypeSMS, err: &PermanentError{Channel: domain.ChannelTypeSMS, Code: 400}}
	d := NewDispatcher(newTestRenderer(t), domain.ChannelTypeWhatsApp, domain.ChannelTypeSMS, wa, sms)

	ok := d.Send(context.Background(), "+2348000000001", alertMessage)

	assert.False(t, ok)
	assert.Len(t, wa.calls(), 1)
	assert.Len(t, sms.calls(), 1)
}

func TestDispatcher_Send_NoFallback(t *testing.T) {
	wa := &fakeSender{channel: domain.ChannelTypeWhatsApp, err: errors.New("boom")}
	sms := &fakeSender{channel: domain.ChannelTypeSMS}
	d := NewDispatcher(newTestRenderer(t), domain.ChannelTypeWhatsApp, "", wa, sms)

	assert.False(t, d.Send(context.Background(), "+2348000000001", alertMessage))
	assert.Empty(t, sms.calls())
}

func TestDispatcher_Send_SameFallbackIgnored(t *testing.T) {
	wa := &fakeSender{channel: domain.ChannelTypeWhatsApp, err: errors.New("boom")}
	d := NewDispatcher(newTestRenderer(t), domain.ChannelTypeWhatsApp, domain.ChannelTypeWhatsApp, wa)

	assert.False(t, d.Send(context.Background(), "+2348000000001", alertMessage))
	assert.Len(t, wa.calls(), 1)
}

func TestDispatcher_Send_MissingSender(t *testing.T) {
	sms := &fakeSender{channel: domain.ChannelTypeSMS}
	d := NewDispatcher(newTestRenderer(t), domain.ChannelTypeWhatsApp, domain.ChannelTypeSMS, sms)

	assert.True(t, d.Send(context.Background(), "+2348000000001", alertMessage))
	assert.Len(t, sms.calls(), 1)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&RetryableError{Channel: domain.ChannelTypeSMS}))
	assert.False(t, IsRetryable(&PermanentError{Channel: domain.ChannelTypeSMS}))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsRetryable(errors.Join(errors.New("ctx"), &RetryableError{})))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "****0001", maskPhone("+2348000000001"))
	assert.Equal(t, "****", maskPhone("123"))
}
