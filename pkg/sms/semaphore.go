package sms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lnhs-portal/docrequest-api/pkg/config"
)

// SemaphoreGateway sends SMS through the Semaphore bulk messaging API
// (the gateway commonly used by Philippine schools).
type SemaphoreGateway struct {
	apiKey  string
	sender  string
	apiBase string
	client  *http.Client
}

// NewSemaphoreGateway returns a gateway, or nil when no API key is set.
// Callers treat a nil gateway as "SMS service not configured".
func NewSemaphoreGateway(cfg config.SMSConfig) *SemaphoreGateway {
	if cfg.APIKey == "" {
		return nil
	}
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = "https://api.semaphore.co/api/v4"
	}
	return &SemaphoreGateway{
		apiKey:  cfg.APIKey,
		sender:  cfg.SenderName,
		apiBase: base,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send dispatches one text message to a single recipient number.
func (g *SemaphoreGateway) Send(ctx context.Context, number, message string) error {
	form := url.Values{}
	form.Set("apikey", g.apiKey)
	form.Set("number", number)
	form.Set("message", message)
	if g.sender != "" {
		form.Set("sendername", g.sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+"/messages", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send sms: status %d", res.StatusCode)
	}
	return nil
}
