package digest

import (
	"context"
	"time"

	"github.com/tandemplan/mailroom/internal/domain"
)

// Recipient is a user eligible for a weekly digest: digest and email
// notifications enabled, at least one owned roadmap.
type Recipient struct {
	User        domain.User
	PartnerName string
}

// SpendTotals holds expense sums for one user across all their roadmaps.
type SpendTotals struct {
	InWindow float64
	AllTime  float64
}

// Repository is the read-only activity projection the builder
// aggregates from. All queries are scoped to a single user.
type Repository interface {
	// ListRecipients returns all digest-eligible users.
	ListRecipients(ctx context.Context) ([]Recipient, error)

	// ListRoadmaps returns the user's owned roadmaps.
	ListRoadmaps(ctx context.Context, userID string) ([]domain.Roadmap, error)

	// ListMilestones returns all milestones of the given roadmaps.
	ListMilestones(ctx context.Context, roadmapIDs []string) ([]domain.Milestone, error)

	// ListCompletedTasks returns the user's tasks completed in [from, to].
	ListCompletedTasks(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error)

	// ListTasksDue returns the user's open tasks due in [from, to].
	ListTasksDue(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error)

	// ListOverdueTasks returns the user's open tasks due before the cutoff.
	ListOverdueTasks(ctx context.Context, userID string, before time.Time) ([]domain.Task, error)

	// SpendTotals returns the user's expense sums: in [from, to] and all-time.
	SpendTotals(ctx context.Context, userID string, from, to time.Time) (*SpendTotals, error)
}
