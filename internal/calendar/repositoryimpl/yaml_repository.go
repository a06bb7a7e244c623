package repositoryimpl

import (
	"cmp"
	"context"
	"slices"

	"github.com/missionctl/missionctl/internal/calendar"
	"github.com/missionctl/missionctl/pkg/docstore"
	"github.com/missionctl/missionctl/pkg/storage"
)

const calendarPrefix = "calendar"

type YAMLRepository struct {
	*docstore.Collection[calendar.Event]
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{
		Collection: docstore.New(s, calendarPrefix, "calendar event", func(e *calendar.Event) string { return e.ID }),
	}
}

func (r *YAMLRepository) List(ctx context.Context, w calendar.Window) ([]*calendar.Event, error) {
	all, err := r.Collection.List(ctx)
	if err != nil {
		return nil, err
	}
	events := slices.DeleteFunc(all, func(e *calendar.Event) bool { return !w.Contains(e) })
	slices.SortStableFunc(events, func(a, b *calendar.Event) int {
		if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return events, nil
}
