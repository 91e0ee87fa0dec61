// Package digest builds weekly activity summaries and feeds them into
// the outbound email queue.
package digest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tandemplan/mailroom/internal/domain"
	"github.com/tandemplan/mailroom/internal/mailqueue"
	"github.com/tandemplan/mailroom/internal/pkg/ctxlog"
)

// Queue is the enqueue surface the builder produces into.
type Queue interface {
	EnqueueWeeklyDigest(ctx context.Context, data mailqueue.WeeklyDigestData) (*mailqueue.QueueItem, error)
}

// RunResult summarises one digest run.
type RunResult struct {
	Evaluated  int      `json:"evaluated"`
	Enqueued   int      `json:"enqueued"`
	Suppressed int      `json:"suppressed"`
	Errors     []string `json:"errors"`
}

// Builder aggregates per-user planning activity into weekly digest
// payloads. Each run recomputes from current data; no state is carried
// between runs.
type Builder struct {
	repo       Repository
	queue      Queue
	windowDays int
}

// NewBuilder creates a digest builder. windowDays is the aggregation
// window length; zero means the default of 7.
func NewBuilder(repo Repository, queue Queue, windowDays int) *Builder {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Builder{
		repo:       repo,
		queue:      queue,
		windowDays: windowDays,
	}
}

// Run builds and enqueues digests for every eligible user. A failure
// while listing recipients is fatal; a failure while aggregating or
// enqueueing one user's digest is logged and skips that user only.
func (b *Builder) Run(ctx context.Context, windowEnd time.Time) (*RunResult, error) {
	log := ctxlog.FromContext(ctx)
	start := time.Now()

	recipients, err := b.repo.ListRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list digest recipients: %w", err)
	}

	result := &RunResult{Evaluated: len(recipients), Errors: []string{}}
	for _, rec := range recipients {
		data, err := b.buildFor(ctx, rec, windowEnd)
		if err != nil {
			log.Warn("digest aggregation failed",
				"user_id", rec.User.ID,
				"error", err,
			)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.User.Email, err))
			recordUserOutcome("error")
			continue
		}

		if !data.HasActivity() {
			result.Suppressed++
			recordUserOutcome("suppressed")
			continue
		}

		if _, err := b.queue.EnqueueWeeklyDigest(ctx, *data); err != nil {
			log.Warn("digest enqueue failed",
				"user_id", rec.User.ID,
				"error", err,
			)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.User.Email, err))
			recordUserOutcome("error")
			continue
		}
		result.Enqueued++
		recordUserOutcome("enqueued")
	}

	recordRunDuration(time.Since(start))
	log.Info("digest run complete",
		"evaluated", result.Evaluated,
		"enqueued", result.Enqueued,
		"suppressed", result.Suppressed,
		"errors", len(result.Errors),
		"window_end", windowEnd,
	)
	return result, nil
}

func (b *Builder) buildFor(ctx context.Context, rec Recipient, windowEnd time.Time) (*mailqueue.WeeklyDigestData, error) {
	userID := rec.User.ID
	windowStart := windowEnd.AddDate(0, 0, -b.windowDays)
	dueHorizon := windowEnd.AddDate(0, 0, b.windowDays)

	roadmaps, err := b.repo.ListRoadmaps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list roadmaps: %w", err)
	}

	roadmapIDs := make([]string, len(roadmaps))
	for i, rm := range roadmaps {
		roadmapIDs[i] = rm.ID
	}
	milestones, err := b.repo.ListMilestones(ctx, roadmapIDs)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}

	completed, err := b.repo.ListCompletedTasks(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list completed tasks: %w", err)
	}
	due, err := b.repo.ListTasksDue(ctx, userID, windowEnd, dueHorizon)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	overdue, err := b.repo.ListOverdueTasks(ctx, userID, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}

	spend, err := b.repo.SpendTotals(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("spend totals: %w", err)
	}

	totalBudget := 0.0
	for _, m := range milestones {
		totalBudget += m.BudgetAllocated
	}

	// A Caser is stateful, so build one per call.
	titler := cases.Title(language.English)

	return &mailqueue.WeeklyDigestData{
		UserID:          userID,
		Email:           rec.User.Email,
		DisplayName:     displayName(titler, rec.User),
		PartnerName:     titler.String(rec.PartnerName),
		TasksCompleted:  taskSummaries(completed),
		TasksDue:        taskSummaries(due),
		TasksOverdue:    taskSummaries(overdue),
		Dreams:          dreamProgress(roadmaps, milestones),
		BudgetSpent:     spend.InWindow,
		BudgetRemaining: totalBudget - spend.AllTime,
		BudgetStatus:    budgetStatus(spend.AllTime, totalBudget),
		WeekEnding:      windowEnd,
	}, nil
}

func displayName(titler cases.Caser, u domain.User) string {
	if u.DisplayName != "" {
		return titler.String(u.DisplayName)
	}
	return u.Email
}

func taskSummaries(tasks []domain.Task) []mailqueue.TaskSummary {
	out := make([]mailqueue.TaskSummary, len(tasks))
	for i, t := range tasks {
		out[i] = mailqueue.TaskSummary{
			Title:       t.Title,
			DueDate:     t.DueDate,
			CompletedAt: t.CompletedAt,
		}
	}
	return out
}

// dreamProgress computes one line per roadmap, progress being the
// average of its milestones. A roadmap with no milestones reports 0.
// progress_change is a fixed 0 stand-in until prior-period snapshots
// are stored.
func dreamProgress(roadmaps []domain.Roadmap, milestones []domain.Milestone) []mailqueue.DreamProgress {
	sums := make(map[string]float64, len(roadmaps))
	counts := make(map[string]int, len(roadmaps))
	for _, m := range milestones {
		sums[m.RoadmapID] += m.ProgressPercent
		counts[m.RoadmapID]++
	}

	out := make([]mailqueue.DreamProgress, len(roadmaps))
	for i, rm := range roadmaps {
		progress := 0.0
		if n := counts[rm.ID]; n > 0 {
			progress = sums[rm.ID] / float64(n)
		}
		out[i] = mailqueue.DreamProgress{
			Title:              rm.Title,
			ProgressPercentage: progress,
			ProgressChange:     0,
		}
	}
	return out
}

// budgetStatus classifies all-time spend against the total milestone
// budget: over 100% is over_budget, over 80% is warning.
func budgetStatus(spentAllTime, totalBudget float64) mailqueue.BudgetStatus {
	if totalBudget <= 0 {
		return mailqueue.BudgetOnTrack
	}
	ratio := spentAllTime / totalBudget
	switch {
	case ratio > 1.0:
		return mailqueue.BudgetOverBudget
	case ratio > 0.8:
		return mailqueue.BudgetWarning
	default:
		return mailqueue.BudgetOnTrack
	}
}
