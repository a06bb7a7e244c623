package repositoryimpl

import (
	"cmp"
	"context"
	"slices"

	"github.com/missionctl/missionctl/internal/content"
	"github.com/missionctl/missionctl/pkg/docstore"
	"github.com/missionctl/missionctl/pkg/storage"
)

const contentPrefix = "content"

type YAMLRepository struct {
	*docstore.Collection[content.Item]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		Collection: docstore.New(s, contentPrefix, "content item", func(i *content.Item) string { return i.ID }),
	}
}

// List returns items newest first.
func (r *YAMLRepository) List(ctx context.Context) ([]*content.Item, error) {
	items, err := r.Collection.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b *content.Item) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return items, nil
}
