package calendar

import "context"

type Repository interface {
	Create(ctx context.Context, e *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	// List returns the events starting inside w, earliest first.
	List(ctx context.Context, w Window) ([]*Event, error)
	Update(ctx context.Context, id string, fn func(*Event) error) (*Event, error)
	Delete(ctx context.Context, id string) error
}
