// Package whatsapp provides WhatsApp notification sending via the Cloud API messages endpoint.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/notifications"
	"golang.org/x/time/rate"
)

const (
	defaultAPIURL    = "https://graph.facebook.com/v21.0"
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 20 // messages per second
)

// Config holds WhatsApp sender configuration.
type Config struct {
	Enabled       bool
	APIURL        string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
	RateLimit     float64
}

// Sender implements WhatsApp notification sender.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	endpoint   string
}

// NewSender creates a new WhatsApp sender.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled {
		if config.PhoneNumberID == "" {
			return nil, errors.New("whatsapp phone number id is required")
		}
		if config.AccessToken == "" {
			return nil, errors.New("whatsapp access token is required")
		}
	}
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
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
		endpoint:   strings.TrimRight(config.APIURL, "/") + "/" + config.PhoneNumberID + "/messages",
	}, nil
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeWhatsApp
}

// Send sends a text message. notification.To holds an E.164 phone number.
func (s *Sender) Send(ctx context.Context, notification notifications.Notification) error {
	if !s.config.Enabled {
		slog.Debug("whatsapp sender disabled, skipping", "to", notification.To)
		return nil
	}

	to := strings.TrimPrefix(notification.To, "+")
	if to == "" {
		return &notifications.PermanentError{Channel: domain.ChannelTypeWhatsApp, Message: "recipient is empty"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload := messageRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = notification.Body

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &notifications.RetryableError{
			Channel: domain.ChannelTypeWhatsApp,
			Message: fmt.Sprintf("send request: %v", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	return s.handleResponse(resp)
}

type messageRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type messageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (s *Sender) handleResponse(resp *http.Response) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var result messageResponse
	_ = json.Unmarshal(raw, &result)

	message := string(raw)
	if result.Error != nil && result.Error.Message != "" {
		message = result.Error.Message
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if len(result.Messages) > 0 {
			slog.Debug("whatsapp message sent", "message_id", result.Messages[0].ID)
		}
		return nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &notifications.RetryableError{
			Channel: domain.ChannelTypeWhatsApp,
			Code:    resp.StatusCode,
			Message: message,
		}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &notifications.PermanentError{
			Channel: domain.ChannelTypeWhatsApp,
			Code:    resp.StatusCode,
			Message: "invalid or expired access token",
		}

	default:
		return &notifications.PermanentError{
			Channel: domain.ChannelTypeWhatsApp,
			Code:    resp.StatusCode,
			Message: message,
		}
	}
}
