// Package mailqueue implements the durable outbound email queue and the
// batch worker that drains it.
package mailqueue

import (
	"encoding/json"
	"time"
)

// EmailType selects the template the send API renders for an item.
type EmailType string

// Email types.
const (
	EmailTypeWeeklyDigest EmailType = "weekly_digest"
	EmailTypeTaskAssigned EmailType = "task_assigned"
	EmailTypeNudge        EmailType = "nudge"
)

// Valid reports whether t is a known email type.
func (t EmailType) Valid() bool {
	switch t {
	case EmailTypeWeeklyDigest, EmailTypeTaskAssigned, EmailTypeNudge:
		return true
	}
	return false
}

// QueueStatus is the lifecycle state of a queue item.
type QueueStatus string

// Queue statuses. Transitions are pending -> processing -> sent|failed;
// sent and failed are terminal. Processing items whose claim has gone
// stale are returned to pending by RecoverStuck.
const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusSent       QueueStatus = "sent"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem is one persisted outbound email request. The worker only
// ever writes Status, ProviderMessageID and ErrorDetail; recipient,
// type and template data are immutable after enqueue.
type QueueItem struct {
	ID                string
	RecipientEmail    string
	EmailType         EmailType
	TemplateData      json.RawMessage
	Status            QueueStatus
	ProviderMessageID string
	ErrorDetail       string
	CreatedAt         time.Time
	ClaimedAt         *time.Time
	SentAt            *time.Time
}

// QueueStats holds queue depth by status.
type QueueStats struct {
	Pending    int64
	Processing int64
	Sent       int64
	Failed     int64
}
