package mailqueue

import (
	"context"
	"encoding/json"
)

// SendRequest is what the worker hands the transport for one item.
// Template rendering is entirely the transport's responsibility.
type SendRequest struct {
	To           string          `json:"to"`
	EmailType    EmailType       `json:"email_type"`
	TemplateData json.RawMessage `json:"template_data"`
}

// SendResult is the transport's acknowledgment of a delivered email.
type SendResult struct {
	MessageID string
}

// Sender delivers a single email via the external send API. A non-2xx
// answer is reported as *SendError; anything else is a request-level
// failure.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}
