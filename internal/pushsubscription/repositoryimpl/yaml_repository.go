package repositoryimpl

import (
	"context"

	"github.com/missionctl/missionctl/internal/pushsubscription"
	"github.com/missionctl/missionctl/pkg/cerr"
	"github.com/missionctl/missionctl/pkg/docstore"
	"github.com/missionctl/missionctl/pkg/storage"
)

const pushSubscriptionsPrefix = "push_subscriptions"

type YAMLRepository struct {
	*docstore.Collection[pushsubscription.Subscription]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		Collection: docstore.New(s, pushSubscriptionsPrefix, "push subscription",
			func(s *pushsubscription.Subscription) string { return s.ID }),
	}
}

func (r *YAMLRepository) FindByEndpoint(ctx context.Context, endpoint string) (*pushsubscription.Subscription, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range all {
		if s.Endpoint == endpoint {
			return s, nil
		}
	}
	return nil, cerr.NewError(cerr.NotFound, "push subscription not found", nil)
}

func (r *YAMLRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	s, err := r.FindByEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}
	return r.Delete(ctx, s.ID)
}
