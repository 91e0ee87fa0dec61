// Package mailapi sends transactional email through the Tandem mail
// service HTTP API.
package mailapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tandemplan/mailroom/internal/mailqueue"
)

const sendPath = "/functions/v1/send-email"

// Config holds the mail API client configuration.
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond int
}

// Client is an HTTP mail sender with client-side rate limiting.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a mail API client from the given configuration.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 10
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

type sendPayload struct {
	To           string          `json:"to"`
	EmailType    string          `json:"email_type"`
	TemplateData json.RawMessage `json:"template_data"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers one message. A non-2xx response is returned as a
// *mailqueue.SendError so callers can record the provider diagnostic.
func (c *Client) Send(ctx context.Context, req mailqueue.SendRequest) (*mailqueue.SendResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(sendPayload{
		To:           req.To,
		EmailType:    string(req.EmailType),
		TemplateData: req.TemplateData,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal send payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build send request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("read send response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &mailqueue.SendError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode send response: %w", err)
	}
	return &mailqueue.SendResult{MessageID: parsed.ID}, nil
}
