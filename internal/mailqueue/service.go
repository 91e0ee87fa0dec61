package mailqueue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Service is the enqueue-side API of the queue, used by the digest
// builder and by other application flows producing emails.
type Service struct {
	repo Repository
}

// NewService creates a queue service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Enqueue persists one pending email request with an opaque,
// already-encoded payload. Used by the HTTP enqueue endpoint where the
// payload arrives as raw JSON.
func (s *Service) Enqueue(ctx context.Context, recipient string, emailType EmailType, templateData json.RawMessage) (*QueueItem, error) {
	item, err := NewItem(recipient, emailType, templateData)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue item: %w", err)
	}
	return item, nil
}

// EnqueueWeeklyDigest persists one weekly digest email for its recipient.
func (s *Service) EnqueueWeeklyDigest(ctx context.Context, data WeeklyDigestData) (*QueueItem, error) {
	item, err := NewItem(data.Email, EmailTypeWeeklyDigest, data)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue digest item: %w", err)
	}
	return item, nil
}

// Stats returns queue depth by status.
func (s *Service) Stats(ctx context.Context) (*QueueStats, error) {
	return s.repo.Stats(ctx)
}
