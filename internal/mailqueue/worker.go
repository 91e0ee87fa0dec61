package mailqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// WorkerConfig contains drain settings.
type WorkerConfig struct {
	DefaultBatchSize int
	MaxBatchSize     int
	// VisibilityTimeout is how long a processing claim may live before
	// a later drain returns the item to pending.
	VisibilityTimeout time.Duration
}

// DefaultWorkerConfig returns default drain settings.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		DefaultBatchSize:  50,
		MaxBatchSize:      500,
		VisibilityTimeout: 5 * time.Minute,
	}
}

// DrainResult summarises one drain invocation. Errors holds one
// "recipient: reason" entry per failed item, in claim order.
type DrainResult struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// Worker drains the queue in bounded batches. It is stateless; each
// DrainQueue call is one independent invocation triggered by the
// external scheduler.
type Worker struct {
	config WorkerConfig
	repo   Repository
	sender Sender
}

// NewWorker creates a queue worker.
func NewWorker(config WorkerConfig, repo Repository, sender Sender) *Worker {
	return &Worker{
		config: config,
		repo:   repo,
		sender: sender,
	}
}

// DrainQueue claims up to batchSize pending items and attempts to send
// each one, recording a terminal state per item. batchSize <= 0 selects
// the configured default; values above the configured maximum are
// capped. Store failures abort the invocation; send failures do not.
func (w *Worker) DrainQueue(ctx context.Context, batchSize int) (*DrainResult, error) {
	if batchSize <= 0 {
		batchSize = w.config.DefaultBatchSize
	}
	if w.config.MaxBatchSize > 0 && batchSize > w.config.MaxBatchSize {
		batchSize = w.config.MaxBatchSize
	}

	if w.config.VisibilityTimeout > 0 {
		recovered, err := w.repo.RecoverStuck(ctx, w.config.VisibilityTimeout)
		if err != nil {
			return nil, fmt.Errorf("recover stuck items: %w", err)
		}
		if recovered > 0 {
			recordRecovered(recovered)
			slog.Warn("recovered stale claims", "count", recovered)
		}
	}

	items, err := w.repo.ClaimPending(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("claim pending items: %w", err)
	}

	result := &DrainResult{Errors: []string{}}
	if len(items) == 0 {
		return result, nil
	}

	recordClaimed(len(items))
	slog.Debug("processing queue batch", "count", len(items))

	for _, item := range items {
		result.Processed++
		if reason, ok := w.processItem(ctx, item); ok {
			result.Sent++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", item.RecipientEmail, reason))
		}
	}

	slog.Info("queue drained",
		"processed", result.Processed,
		"sent", result.Sent,
		"failed", result.Failed,
	)

	return result, nil
}

// processItem sends one claimed item and records its terminal state.
// Returns the failure reason when the item could not be sent.
func (w *Worker) processItem(ctx context.Context, item *QueueItem) (reason string, sent bool) {
	start := time.Now()

	res, err := w.sender.Send(ctx, SendRequest{
		To:           item.RecipientEmail,
		EmailType:    item.EmailType,
		TemplateData: item.TemplateData,
	})
	recordSendDuration(item.EmailType, time.Since(start))

	if err != nil {
		detail := failureDetail(err)
		slog.Warn("send failed",
			"item_id", item.ID,
			"email_type", item.EmailType,
			"error", err,
		)
		if markErr := w.repo.MarkFailed(ctx, item.ID, detail); markErr != nil {
			slog.Error("failed to mark item failed", "item_id", item.ID, "error", markErr)
		}
		recordEmailOutcome(item.EmailType, "failed")
		return detail, false
	}

	if markErr := w.repo.MarkSent(ctx, item.ID, res.MessageID); markErr != nil {
		slog.Error("failed to mark item sent", "item_id", item.ID, "error", markErr)
	}
	recordEmailOutcome(item.EmailType, "sent")

	slog.Debug("email sent",
		"item_id", item.ID,
		"email_type", item.EmailType,
		"provider_message_id", res.MessageID,
	)
	return "", true
}

// failureDetail builds the persisted diagnostic string, distinguishing
// an error answer from the send API from a request-level failure.
func failureDetail(err error) string {
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Error()
	}
	return fmt.Sprintf("send request failed: %v", err)
}
