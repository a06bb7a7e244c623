package pushsubscription

import "context"

type Repository interface {
	Put(ctx context.Context, s *Subscription) error
	List(ctx context.Context) ([]*Subscription, error)
	Delete(ctx context.Context, id string) error
	// FindByEndpoint returns NotFound when no subscription uses endpoint.
	FindByEndpoint(ctx context.Context, endpoint string) (*Subscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}
