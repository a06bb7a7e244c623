package task

import "context"

type Repository interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// List returns every task, newest first.
	List(ctx context.Context) ([]*Task, error)
	// Update applies fn to the stored task and saves it. Concurrent updates
	// of one task are serialized.
	Update(ctx context.Context, id string, fn func(*Task) error) (*Task, error)
	Delete(ctx context.Context, id string) error
}
