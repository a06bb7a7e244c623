package automation

import (
	"context"
	"time"
)

// RuleRepository stores routing rules. List returns rules by priority
// descending, ties in insertion order.
type RuleRepository interface {
	List(ctx context.Context) ([]*Rule, error)
	Get(ctx context.Context, id string) (*Rule, error)
	Create(ctx context.Context, rule *Rule) error
	// Update runs fn on the stored rule and persists the result atomically
	// with respect to other writers.
	Update(ctx context.Context, id string, fn func(*Rule) error) (*Rule, error)
	Delete(ctx context.Context, id string) error
	// SeedOnce inserts rules the first time it is called against a store.
	// It reports whether seeding happened.
	SeedOnce(ctx context.Context, rules []*Rule) (bool, error)
}

// MetadataRepository stores per-task metadata keyed by task id.
type MetadataRepository interface {
	// Get returns nil without error when no metadata exists for taskID.
	Get(ctx context.Context, taskID string) (*Metadata, error)
	List(ctx context.Context) ([]*Metadata, error)
	// Upsert runs fn on the current record (nil when absent) and stores what
	// it returns, in a single transaction.
	Upsert(ctx context.Context, taskID string, fn func(prev *Metadata) *Metadata) (*Metadata, error)
	Delete(ctx context.Context, taskID string) error
}

// DecisionRepository keeps the latest decision per task.
type DecisionRepository interface {
	// Get returns nil without error when no decision exists for taskID.
	Get(ctx context.Context, taskID string) (*Decision, error)
	List(ctx context.Context) ([]*Decision, error)
	Put(ctx context.Context, d *Decision) error
	Delete(ctx context.Context, taskID string) error
}

// TaskRecord is the slice of a task the engine reads.
type TaskRecord struct {
	ID          string
	Title       string
	Description string
	Assignee    string
}

// TaskStore gives the engine access to the task board without depending on
// its storage.
type TaskStore interface {
	// LookupTask returns nil without error when the task does not exist.
	LookupTask(ctx context.Context, id string) (*TaskRecord, error)
	SetAssignee(ctx context.Context, id, assignee string) error
}

type Clock func() time.Time
