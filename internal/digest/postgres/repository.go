// Package postgres provides the PostgreSQL activity projection the
// digest builder reads from.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tandemplan/mailroom/internal/digest"
	"github.com/tandemplan/mailroom/internal/domain"
)

// Repository implements digest.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL digest repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListRecipients returns digest-eligible users: both notification
// preferences enabled and at least one owned roadmap.
func (r *Repository) ListRecipients(ctx context.Context) ([]digest.Recipient, error) {
	query := `
		SELECT u.id, u.email, u.display_name, u.partner_id, u.created_at, u.updated_at,
		       COALESCE(p.display_name, '')
		FROM users u
		JOIN notification_prefs np ON np.user_id = u.id
		LEFT JOIN users p ON p.id = u.partner_id
		WHERE np.email_notifications AND np.weekly_digest
		  AND EXISTS (SELECT 1 FROM roadmaps rm WHERE rm.owner_id = u.id)
		ORDER BY u.created_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list digest recipients: %w", err)
	}
	defer rows.Close()

	var recipients []digest.Recipient
	for rows.Next() {
		var rec digest.Recipient
		err := rows.Scan(
			&rec.User.ID,
			&rec.User.Email,
			&rec.User.DisplayName,
			&rec.User.PartnerID,
			&rec.User.CreatedAt,
			&rec.User.UpdatedAt,
			&rec.PartnerName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

// ListRoadmaps returns the user's owned roadmaps.
func (r *Repository) ListRoadmaps(ctx context.Context, userID string) ([]domain.Roadmap, error) {
	query := `
		SELECT id, owner_id, title, created_at
		FROM roadmaps
		WHERE owner_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}
	defer rows.Close()

	var roadmaps []domain.Roadmap
	for rows.Next() {
		var rm domain.Roadmap
		if err := rows.Scan(&rm.ID, &rm.OwnerID, &rm.Title, &rm.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan roadmap: %w", err)
		}
		roadmaps = append(roadmaps, rm)
	}
	return roadmaps, rows.Err()
}

// ListMilestones returns all milestones of the given roadmaps.
func (r *Repository) ListMilestones(ctx context.Context, roadmapIDs []string) ([]domain.Milestone, error) {
	if len(roadmapIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, roadmap_id, title, progress_percent, budget_allocated, created_at
		FROM milestones
		WHERE roadmap_id = ANY($1)
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, roadmapIDs)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var milestones []domain.Milestone
	for rows.Next() {
		var m domain.Milestone
		err := rows.Scan(&m.ID, &m.RoadmapID, &m.Title, &m.ProgressPercent, &m.BudgetAllocated, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// ListCompletedTasks returns the user's tasks completed in [from, to].
func (r *Repository) ListCompletedTasks(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	query := `
		SELECT id, roadmap_id, assignee_id, title, due_date, completed_at
		FROM tasks
		WHERE assignee_id = $1 AND completed_at >= $2 AND completed_at <= $3
		ORDER BY completed_at
	`
	return r.queryTasks(ctx, query, userID, from, to)
}

// ListTasksDue returns the user's open tasks due in [from, to].
func (r *Repository) ListTasksDue(ctx context.Context, userID string, from, to time.Time) ([]domain.Task, error) {
	query := `
		SELECT id, roadmap_id, assignee_id, title, due_date, completed_at
		FROM tasks
		WHERE assignee_id = $1 AND completed_at IS NULL
		  AND due_date >= $2 AND due_date <= $3
		ORDER BY due_date
	`
	return r.queryTasks(ctx, query, userID, from, to)
}

// ListOverdueTasks returns the user's open tasks due before the cutoff.
func (r *Repository) ListOverdueTasks(ctx context.Context, userID string, before time.Time) ([]domain.Task, error) {
	query := `
		SELECT id, roadmap_id, assignee_id, title, due_date, completed_at
		FROM tasks
		WHERE assignee_id = $1 AND completed_at IS NULL AND due_date < $2
		ORDER BY due_date
	`
	return r.queryTasks(ctx, query, userID, before)
}

// SpendTotals returns the user's expense sums across all owned
// roadmaps: within [from, to] and all-time.
func (r *Repository) SpendTotals(ctx context.Context, userID string, from, to time.Time) (*digest.SpendTotals, error) {
	query := `
		SELECT COALESCE(SUM(e.amount) FILTER (WHERE e.spent_at >= $2 AND e.spent_at <= $3), 0),
		       COALESCE(SUM(e.amount), 0)
		FROM expenses e
		JOIN roadmaps rm ON rm.id = e.roadmap_id
		WHERE rm.owner_id = $1
	`
	totals := &digest.SpendTotals{}
	err := r.db.QueryRow(ctx, query, userID, from, to).Scan(&totals.InWindow, &totals.AllTime)
	if err != nil {
		return nil, fmt.Errorf("spend totals: %w", err)
	}
	return totals, nil
}

func (r *Repository) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		var t domain.Task
		err := rows.Scan(&t.ID, &t.RoadmapID, &t.AssigneeID, &t.Title, &t.DueDate, &t.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
