package content

import "context"

type Repository interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
	Update(ctx context.Context, id string, fn func(*Item) error) (*Item, error)
	Delete(ctx context.Context, id string) error
}
