// Package postgres provides the PostgreSQL implementation of the
// mailqueue repository.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tandemplan/mailroom/internal/mailqueue"
)

// Repository implements mailqueue.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL queue repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Enqueue persists a new pending item.
func (r *Repository) Enqueue(ctx context.Context, item *mailqueue.QueueItem) error {
	query := `
		INSERT INTO email_queue (id, recipient_email, email_type, template_data, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		item.ID,
		item.RecipientEmail,
		item.EmailType,
		item.TemplateData,
		mailqueue.QueueStatusPending,
	).Scan(&item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	item.Status = mailqueue.QueueStatusPending
	return nil
}

// EnqueueBatch persists multiple pending items in one transaction.
func (r *Repository) EnqueueBatch(ctx context.Context, items []*mailqueue.QueueItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `
		INSERT INTO email_queue (id, recipient_email, email_type, template_data, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	for _, item := range items {
		err := tx.QueryRow(ctx, query,
			item.ID,
			item.RecipientEmail,
			item.EmailType,
			item.TemplateData,
			mailqueue.QueueStatusPending,
		).Scan(&item.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert queue item %s: %w", item.ID, err)
		}
		item.Status = mailqueue.QueueStatusPending
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ClaimPending claims up to limit pending items, oldest first. The
// claim is a single statement over FOR UPDATE SKIP LOCKED, so
// overlapping drains never receive the same item.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]*mailqueue.QueueItem, error) {
	query := `
		UPDATE email_queue
		SET status = $1, claimed_at = NOW()
		WHERE id IN (
			SELECT id FROM email_queue
			WHERE status = $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient_email, email_type, template_data, status,
		          COALESCE(provider_message_id, ''), COALESCE(error_detail, ''),
		          created_at, claimed_at, sent_at
	`
	rows, err := r.db.Query(ctx, query,
		mailqueue.QueueStatusProcessing,
		mailqueue.QueueStatusPending,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim pending items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	// RETURNING order is not defined; restore enqueue order.
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// MarkSent transitions a claimed item to sent. Terminal items are
// never touched again.
func (r *Repository) MarkSent(ctx context.Context, id, providerMessageID string) error {
	query := `
		UPDATE email_queue
		SET status = $1, provider_message_id = $2, sent_at = NOW()
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.Exec(ctx, query,
		mailqueue.QueueStatusSent,
		providerMessageID,
		id,
		mailqueue.QueueStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark sent %s: item not in processing state", id)
	}
	return nil
}

// MarkFailed transitions a claimed item to failed with a diagnostic.
func (r *Repository) MarkFailed(ctx context.Context, id, errorDetail string) error {
	query := `
		UPDATE email_queue
		SET status = $1, error_detail = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.Exec(ctx, query,
		mailqueue.QueueStatusFailed,
		errorDetail,
		id,
		mailqueue.QueueStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark failed %s: item not in processing state", id)
	}
	return nil
}

// RecoverStuck returns stale processing items to pending.
func (r *Repository) RecoverStuck(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
		UPDATE email_queue
		SET status = $1, claimed_at = NULL
		WHERE status = $2 AND claimed_at < NOW() - make_interval(secs => $3)
	`
	result, err := r.db.Exec(ctx, query,
		mailqueue.QueueStatusPending,
		mailqueue.QueueStatusProcessing,
		olderThan.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("recover stuck items: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteOldSent removes sent items older than olderThan.
func (r *Repository) DeleteOldSent(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM email_queue WHERE status = $1 AND sent_at < NOW() - make_interval(secs => $2)`
	result, err := r.db.Exec(ctx, query, mailqueue.QueueStatusSent, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("delete old sent items: %w", err)
	}
	return result.RowsAffected(), nil
}

// Stats returns queue depth by status.
func (r *Repository) Stats(ctx context.Context) (*mailqueue.QueueStats, error) {
	query := `SELECT status, COUNT(*) FROM email_queue GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := &mailqueue.QueueStats{}
	for rows.Next() {
		var status mailqueue.QueueStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		switch status {
		case mailqueue.QueueStatusPending:
			stats.Pending = count
		case mailqueue.QueueStatusProcessing:
			stats.Processing = count
		case mailqueue.QueueStatusSent:
			stats.Sent = count
		case mailqueue.QueueStatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

func scanItems(rows pgx.Rows) ([]*mailqueue.QueueItem, error) {
	var items []*mailqueue.QueueItem
	for rows.Next() {
		var item mailqueue.QueueItem
		err := rows.Scan(
			&item.ID,
			&item.RecipientEmail,
			&item.EmailType,
			&item.TemplateData,
			&item.Status,
			&item.ProviderMessageID,
			&item.ErrorDetail,
			&item.CreatedAt,
			&item.ClaimedAt,
			&item.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
