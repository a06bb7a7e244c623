package task

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

type Status string

const (
	StatusRecurring  Status = "recurring"
	StatusBacklog    Status = "backlog"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

var statuses = []Status{StatusRecurring, StatusBacklog, StatusInProgress, StatusReview, StatusDone}

func (s Status) Valid() bool { return slices.Contains(statuses, s) }

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool { return slices.Contains(priorities, p) }

const DefaultAssignee = "assistant"

type Task struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	Assignee    string     `yaml:"assignee" json:"assignee"`
	Status      Status     `yaml:"status" json:"status"`
	Priority    Priority   `yaml:"priority" json:"priority"`
	DueAt       *time.Time `yaml:"due_at,omitempty" json:"due_at"`
	CreatedAt   time.Time  `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `yaml:"updated_at" json:"updated_at"`
}

// New returns a backlog task with normal priority assigned to the assistant.
func New(title string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        ulid.Make().String(),
		Title:     title,
		Assignee:  DefaultAssignee,
		Status:    StatusBacklog,
		Priority:  PriorityNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
