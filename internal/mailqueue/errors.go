package mailqueue

import (
	"errors"
	"fmt"
)

// Enqueue errors.
var (
	ErrEmptyRecipient   = errors.New("recipient email is required")
	ErrUnknownEmailType = errors.New("unknown email type")
)

// SendError is returned by a Sender when the send API answered with a
// non-2xx status. Any other error from a Sender is a request-level
// failure (network, timeout, malformed response).
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send api status %d: %s", e.StatusCode, e.Body)
}
