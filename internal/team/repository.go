package team

import "context"

type Repository interface {
	Create(ctx context.Context, m *Member) error
	Get(ctx context.Context, id string) (*Member, error)
	// List returns members in creation order.
	List(ctx context.Context) ([]*Member, error)
	Update(ctx context.Context, id string, fn func(*Member) error) (*Member, error)
	Delete(ctx context.Context, id string) error
}
