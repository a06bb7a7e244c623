package repositoryimpl

import (
	"cmp"
	"context"
	"slices"

	"github.com/missionctl/missionctl/internal/team"
	"github.com/missionctl/missionctl/pkg/docstore"
	"github.com/missionctl/missionctl/pkg/storage"
)

const teamPrefix = "team"

type YAMLRepository struct {
	*docstore.Collection[team.Member]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		Collection: docstore.New(s, teamPrefix, "team member", func(m *team.Member) string { return m.ID }),
	}
}

func (r *YAMLRepository) List(ctx context.Context) ([]*team.Member, error) {
	members, err := r.Collection.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(members, func(a, b *team.Member) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return members, nil
}
