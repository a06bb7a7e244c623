package repositoryimpl

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/missionctl/missionctl/internal/task"
	"github.com/missionctl/missionctl/pkg/cerr"
	"github.com/missionctl/missionctl/pkg/storage"
)

const tasksPrefix = "tasks"

type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) (string, error) {
	return storage.DocumentPath(tasksPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := path(t.ID)
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	exists, err := r.storage.Exists(ctx, p)
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	return r.write(ctx, t)
}

func (r *YAMLRepository) write(ctx context.Context, t *task.Task) error {
	p, err := path(t.ID)
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task: %w", err))
	}
	if err := r.storage.Write(ctx, p, data); err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	p, err := path(id)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	data, err := r.storage.Read(ctx, p)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	var t task.Task
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal task: %w", err))
	}
	return &t, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*task.Task, error) {
	paths, err := r.storage.List(ctx, tasksPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}

	all := []*task.Task{}
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var t task.Task
		if err := yaml.Unmarshal(data, &t); err != nil {
			continue
		}
		all = append(all, &t)
	}
	slices.SortStableFunc(all, func(a, b *task.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareDesc(a.ID, b.ID)
	})
	return all, nil
}

func compareDesc(a, b string) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

func (r *YAMLRepository) Update(ctx context.Context, id string, fn func(*task.Task) error) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	t.ID = id
	if err := r.write(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := path(id)
	if err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	if err := r.storage.Delete(ctx, p); err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	return nil
}
