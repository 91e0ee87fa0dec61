package domain

import "time"

// Roadmap is a shared life-planning roadmap (a "dream" with a plan attached).
type Roadmap struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
}

// Milestone is a step within a roadmap. Progress is recorded as a
// percentage in [0, 100]; BudgetAllocated is the planned spend for
// this step in the account currency.
type Milestone struct {
	ID              string
	RoadmapID       string
	Title           string
	ProgressPercent float64
	BudgetAllocated float64
	CreatedAt       time.Time
}

// Task is an actionable item attached to a roadmap.
type Task struct {
	ID          string
	RoadmapID   string
	AssigneeID  string
	Title       string
	DueDate     *time.Time
	CompletedAt *time.Time
}

// Completed reports whether the task has been marked done.
func (t Task) Completed() bool {
	return t.CompletedAt != nil
}

// Expense is a recorded spend against a roadmap.
type Expense struct {
	ID        string
	RoadmapID string
	Amount    float64
	SpentAt   time.Time
}
