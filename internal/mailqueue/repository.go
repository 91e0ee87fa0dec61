package mailqueue

import (
	"context"
	"time"
)

// Repository is the sole mutation surface on queue items.
type Repository interface {
	// Enqueue persists a new pending item.
	Enqueue(ctx context.Context, item *QueueItem) error
	// EnqueueBatch persists multiple pending items in one transaction.
	EnqueueBatch(ctx context.Context, items []*QueueItem) error

	// ClaimPending atomically claims up to limit pending items, oldest
	// first, marking them processing. Two concurrent callers never
	// receive the same item.
	ClaimPending(ctx context.Context, limit int) ([]*QueueItem, error)

	// MarkSent transitions a claimed item to its terminal sent state.
	MarkSent(ctx context.Context, id, providerMessageID string) error
	// MarkFailed transitions a claimed item to its terminal failed state.
	MarkFailed(ctx context.Context, id, errorDetail string) error

	// RecoverStuck returns processing items claimed longer than
	// olderThan ago to pending, so a crashed worker's claims are not
	// lost. Reports how many items were recovered.
	RecoverStuck(ctx context.Context, olderThan time.Duration) (int64, error)

	// DeleteOldSent removes sent items older than olderThan. Retention
	// tooling; never called by the drain path.
	DeleteOldSent(ctx context.Context, olderThan time.Duration) (int64, error)

	// Stats returns queue depth by status.
	Stats(ctx context.Context) (*QueueStats, error)
}
