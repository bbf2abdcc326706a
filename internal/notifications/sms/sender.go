// Package sms provides SMS notification sending through an HTTP gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/notifications"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 5 // messages per second
	maxBodyLength    = 480
)

// Config holds SMS gateway configuration.
type Config struct {
	Enabled   bool
	APIURL    string
	APIKey    string
	From      string
	Timeout   time.Duration
	RateLimit float64
}

// Sender implements SMS notification sender.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSender creates a new SMS sender.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled {
		if config.APIURL == "" {
			return nil, errors.New("sms api url is required")
		}
		if config.APIKey == "" {
			return nil, errors.New("sms api key is required")
		}
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeSMS
}

// Send sends a text message. notification.To holds an E.164 phone number.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if !s.config.Enabled {
		slog.Debug("sms sender disabled, skipping", "to", notification.To)
		return nil
	}

	if notification.To == "" {
		return &notifications.PermanentError{Channel: domain.ChannelTypeSMS, Message: "recipient is empty"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	text := notification.Body
	if len(text) > maxBodyLength {
		text = text[:maxBodyLength]
	}

	body, err := json.Marshal(smsRequest{
		From: s.config.From,
		To:   notification.To,
		Text: text,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &notifications.RetryableError{
			Channel: domain.ChannelTypeSMS,
			Message: fmt.Sprintf("send request: %v", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(resp)
}

type smsRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *Sender) handleResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		slog.Debug("sms message sent")
		return nil

	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &notifications.PermanentError{
			Channel: domain.ChannelTypeSMS,
			Code:    resp.StatusCode,
			Message: fmt.Sprintf("bad request: %s", string(body)),
		}

	case http.StatusUnauthorized, http.StatusForbidden:
		return &notifications.PermanentError{
			Channel: domain.ChannelTypeSMS,
			Code:    resp.StatusCode,
			Message: "invalid api key",
		}

	case http.StatusTooManyRequests:
		return &notifications.RetryableError{
			Channel: domain.ChannelTypeSMS,
			Code:    resp.StatusCode,
			Message: "rate limited",
		}

	default:
		if resp.StatusCode >= 500 {
			return &notifications.RetryableError{
				Channel: domain.ChannelTypeSMS,
				Code:    resp.StatusCode,
				Message: fmt.Sprintf("server error: %s", string(body)),
			}
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
