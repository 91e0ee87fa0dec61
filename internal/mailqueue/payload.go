package mailqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Template data is a tagged union keyed by EmailType: each variant below
// is the schema the send API expects for that type. The queue itself
// stores the payload opaquely.

// BudgetStatus summarises all-time spend against the total budget.
type BudgetStatus string

// Budget statuses.
const (
	BudgetOnTrack    BudgetStatus = "on_track"
	BudgetWarning    BudgetStatus = "warning"
	BudgetOverBudget BudgetStatus = "over_budget"
)

// TaskSummary is one task line in a weekly digest.
type TaskSummary struct {
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DreamProgress is one roadmap line in a weekly digest.
type DreamProgress struct {
	Title              string  `json:"title"`
	ProgressPercentage float64 `json:"progress_percentage"`
	ProgressChange     float64 `json:"progress_change"`
}

// WeeklyDigestData is the payload of a weekly_digest email: one user's
// aggregated activity for the week.
type WeeklyDigestData struct {
	UserID          string          `json:"user_id"`
	Email           string          `json:"email"`
	DisplayName     string          `json:"display_name"`
	PartnerName     string          `json:"partner_name,omitempty"`
	TasksCompleted  []TaskSummary   `json:"tasks_completed"`
	TasksDue        []TaskSummary   `json:"tasks_due"`
	TasksOverdue    []TaskSummary   `json:"tasks_overdue"`
	Dreams          []DreamProgress `json:"dreams"`
	BudgetSpent     float64         `json:"budget_spent"`
	BudgetRemaining float64         `json:"budget_remaining"`
	BudgetStatus    BudgetStatus    `json:"budget_status"`
	WeekEnding      time.Time       `json:"week_ending"`
}

// HasActivity reports whether the digest has anything to say about
// tasks. Digests without task activity are suppressed, never enqueued.
func (d WeeklyDigestData) HasActivity() bool {
	return len(d.TasksCompleted) > 0 || len(d.TasksDue) > 0 || len(d.TasksOverdue) > 0
}

// TaskAssignedData is the payload of a task_assigned email.
type TaskAssignedData struct {
	TaskTitle    string     `json:"task_title"`
	RoadmapTitle string     `json:"roadmap_title"`
	AssignerName string     `json:"assigner_name"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

// NudgeData is the payload of a nudge email, a short prompt one partner
// sends the other.
type NudgeData struct {
	SenderName string `json:"sender_name"`
	Message    string `json:"message"`
}

// NewItem builds a pending queue item for recipient with the given
// typed payload. The payload must match the email type's variant.
func NewItem(recipient string, emailType EmailType, payload interface{}) (*QueueItem, error) {
	if recipient == "" {
		return nil, ErrEmptyRecipient
	}
	if !emailType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmailType, emailType)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal template data: %w", err)
	}

	return &QueueItem{
		ID:             uuid.New().String(),
		RecipientEmail: recipient,
		EmailType:      emailType,
		TemplateData:   data,
		Status:         QueueStatusPending,
	}, nil
}

// DecodeTemplateData decodes an item's payload into the variant for its
// email type.
func DecodeTemplateData(item *QueueItem) (interface{}, error) {
	var v interface{}
	switch item.EmailType {
	case EmailTypeWeeklyDigest:
		v = &WeeklyDigestData{}
	case EmailTypeTaskAssigned:
		v = &TaskAssignedData{}
	case EmailTypeNudge:
		v = &NudgeData{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmailType, item.EmailType)
	}

	if err := json.Unmarshal(item.TemplateData, v); err != nil {
		return nil, fmt.Errorf("decode %s template data: %w", item.EmailType, err)
	}
	return v, nil
}
