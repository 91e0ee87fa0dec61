package digest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tandemplan/mailroom/internal/domain"
	"github.com/tandemplan/mailroom/internal/mailqueue"
)

type userActivity struct {
	roadmaps  []domain.Roadmap
	completed []domain.Task
	due       []domain.Task
	overdue   []domain.Task
	spend     SpendTotals
	listErr   error
}

// mockRepository implements Repository over fixed per-user fixtures.
type mockRepository struct {
	recipients    []Recipient
	recipientsErr error
	activity      map[string]*userActivity
	milestones    map[string][]domain.Milestone // roadmap id -> milestones
}

func (m *mockRepository) ListRecipients(_ context.Context) ([]Recipient, error) {
	return m.recipients, m.recipientsErr
}

func (m *mockRepository) ListRoadmaps(_ context.Context, userID string) ([]domain.Roadmap, error) {
	a := m.activity[userID]
	return a.roadmaps, a.listErr
}

func (m *mockRepository) ListMilestones(_ context.Context, roadmapIDs []string) ([]domain.Milestone, error) {
	var out []domain.Milestone
	for _, id := range roadmapIDs {
		out = append(out, m.milestones[id]...)
	}
	return out, nil
}

func (m *mockRepository) ListCompletedTasks(_ context.Context, userID string, _, _ time.Time) ([]domain.Task, error) {
	return m.activity[userID].completed, nil
}

func (m *mockRepository) ListTasksDue(_ context.Context, userID string, _, _ time.Time) ([]domain.Task, error) {
	return m.activity[userID].due, nil
}

func (m *mockRepository) ListOverdueTasks(_ context.Context, userID string, _ time.Time) ([]domain.Task, error) {
	return m.activity[userID].overdue, nil
}

func (m *mockRepository) SpendTotals(_ context.Context, userID string, _, _ time.Time) (*SpendTotals, error) {
	spend := m.activity[userID].spend
	return &spend, nil
}

// mockQueue records enqueued digests.
type mockQueue struct {
	enqueued   []mailqueue.WeeklyDigestData
	enqueueErr error
}

func (m *mockQueue) EnqueueWeeklyDigest(_ context.Context, data mailqueue.WeeklyDigestData) (*mailqueue.QueueItem, error) {
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	m.enqueued = append(m.enqueued, data)
	return &mailqueue.QueueItem{ID: "item", RecipientEmail: data.Email}, nil
}

func recipient(id, email, name string) Recipient {
	return Recipient{User: domain.User{ID: id, Email: email, DisplayName: name}}
}

func TestBuilder_Run_EnqueuesActiveUsers(t *testing.T) {
	windowEnd := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	done := windowEnd.Add(-24 * time.Hour)

	repo := &mockRepository{
		recipients: []Recipient{recipient("u1", "ada@example.com", "ada lovelace")},
		activity: map[string]*userActivity{
			"u1": {
				roadmaps: []domain.Roadmap{{ID: "r1", OwnerID: "u1", Title: "Japan trip"}},
				completed: []domain.Task{
					{ID: "t1", RoadmapID: "r1", AssigneeID: "u1", Title: "book flights", CompletedAt: &done},
				},
				spend: SpendTotals{InWindow: 120, AllTime: 400},
			},
		},
		milestones: map[string][]domain.Milestone{
			"r1": {
				{ID: "m1", RoadmapID: "r1", ProgressPercent: 40, BudgetAllocated: 600},
				{ID: "m2", RoadmapID: "r1", ProgressPercent: 60, BudgetAllocated: 400},
			},
		},
	}
	queue := &mockQueue{}
	builder := NewBuilder(repo, queue, 7)

	result, err := builder.Run(context.Background(), windowEnd)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Evaluated)
	assert.Equal(t, 1, result.Enqueued)
	assert.Equal(t, 0, result.Suppressed)
	assert.Empty(t, result.Errors)

	require.Len(t, queue.enqueued, 1)
	data := queue.enqueued[0]
	assert.Equal(t, "ada@example.com", data.Email)
	assert.Equal(t, "Ada Lovelace", data.DisplayName)
	assert.True(t, windowEnd.Equal(data.WeekEnding))

	require.Len(t, data.Dreams, 1)
	assert.Equal(t, "Japan trip", data.Dreams[0].Title)
	assert.InDelta(t, 50, data.Dreams[0].ProgressPercentage, 0.001)
	assert.Zero(t, data.Dreams[0].ProgressChange)

	assert.InDelta(t, 120, data.BudgetSpent, 0.001)
	assert.InDelta(t, 600, data.BudgetRemaining, 0.001) // 1000 allocated - 400 spent
	assert.Equal(t, mailqueue.BudgetOnTrack, data.BudgetStatus)
}

func TestBuilder_Run_SuppressesNoActivity(t *testing.T) {
	repo := &mockRepository{
		recipients: []Recipient{recipient("u1", "ada@example.com", "Ada")},
		activity: map[string]*userActivity{
			"u1": {roadmaps: []domain.Roadmap{{ID: "r1", OwnerID: "u1", Title: "Japan trip"}}},
		},
	}
	queue := &mockQueue{}
	builder := NewBuilder(repo, queue, 7)

	result, err := builder.Run(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Evaluated)
	assert.Equal(t, 0, result.Enqueued)
	assert.Equal(t, 1, result.Suppressed)
	assert.Empty(t, queue.enqueued)
}

func TestBuilder_Run_PerUserIsolation(t *testing.T) {
	due := time.Now().Add(48 * time.Hour)

	repo := &mockRepository{
		recipients: []Recipient{
			recipient("u1", "broken@example.com", "Broken"),
			recipient("u2", "carl@example.com", "Carl"),
		},
		activity: map[string]*userActivity{
			"u1": {listErr: errors.New("row corrupted")},
			"u2": {
				roadmaps: []domain.Roadmap{{ID: "r2", OwnerID: "u2", Title: "Buy a house"}},
				due: []domain.Task{
					{ID: "t1", RoadmapID: "r2", AssigneeID: "u2", Title: "call the bank", DueDate: &due},
				},
			},
		},
	}
	queue := &mockQueue{}
	builder := NewBuilder(repo, queue, 7)

	result, err := builder.Run(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 1, result.Enqueued)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "broken@example.com: ")
	assert.Contains(t, result.Errors[0], "row corrupted")

	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, "carl@example.com", queue.enqueued[0].Email)
}

func TestBuilder_Run_RecipientsFailureIsFatal(t *testing.T) {
	repo := &mockRepository{recipientsErr: errors.New("connection reset")}
	builder := NewBuilder(repo, &mockQueue{}, 7)

	result, err := builder.Run(context.Background(), time.Now())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorContains(t, err, "list digest recipients")
}

func TestBuilder_Run_EnqueueFailureIsIsolated(t *testing.T) {
	done := time.Now().Add(-time.Hour)
	repo := &mockRepository{
		recipients: []Recipient{recipient("u1", "ada@example.com", "Ada")},
		activity: map[string]*userActivity{
			"u1": {
				roadmaps:  []domain.Roadmap{{ID: "r1", OwnerID: "u1", Title: "Japan trip"}},
				completed: []domain.Task{{ID: "t1", Title: "book flights", CompletedAt: &done}},
			},
		},
	}
	queue := &mockQueue{enqueueErr: errors.New("queue unavailable")}
	builder := NewBuilder(repo, queue, 7)

	result, err := builder.Run(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Enqueued)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "queue unavailable")
}

func TestBudgetStatus(t *testing.T) {
	tests := []struct {
		name     string
		spent    float64
		total    float64
		expected mailqueue.BudgetStatus
	}{
		{"well under", 100, 1000, mailqueue.BudgetOnTrack},
		{"exactly 80 percent", 800, 1000, mailqueue.BudgetOnTrack},
		{"just over 80 percent", 801, 1000, mailqueue.BudgetWarning},
		{"exactly 100 percent", 1000, 1000, mailqueue.BudgetWarning},
		{"over budget", 1001, 1000, mailqueue.BudgetOverBudget},
		{"zero budget", 500, 0, mailqueue.BudgetOnTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, budgetStatus(tt.spent, tt.total))
		})
	}
}

func TestDreamProgress_NoMilestones(t *testing.T) {
	roadmaps := []domain.Roadmap{{ID: "r1", Title: "Learn piano"}}

	dreams := dreamProgress(roadmaps, nil)
	require.Len(t, dreams, 1)
	assert.Zero(t, dreams[0].ProgressPercentage)
}
