package task

import (
	"context"
	"time"

	"github.com/missionctl/missionctl/internal/automation"
	"github.com/missionctl/missionctl/pkg/cerr"
)

// AutomationStore exposes the task board to the automation engine.
type AutomationStore struct {
	repo Repository
}

var _ automation.TaskStore = (*AutomationStore)(nil)

func NewAutomationStore(repo Repository) *AutomationStore {
	return &AutomationStore{repo: repo}
}

func (s *AutomationStore) LookupTask(ctx context.Context, id string) (*automation.TaskRecord, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &automation.TaskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Assignee:    t.Assignee,
	}, nil
}

func (s *AutomationStore) SetAssignee(ctx context.Context, id, assignee string) error {
	_, err := s.repo.Update(ctx, id, func(t *Task) error {
		t.Assignee = assignee
		t.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}
