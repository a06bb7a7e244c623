package repositoryimpl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/missionctl/missionctl/internal/taskrun"
	"github.com/missionctl/missionctl/pkg/cerr"
	"github.com/missionctl/missionctl/pkg/storage"
)

const taskRunsPrefix = "task_runs"

// YAMLRepository keeps one document per run. Run ids are ULIDs, so the
// lexical order of paths is creation order.
type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func (r *YAMLRepository) Push(ctx context.Context, run *taskrun.TaskRun) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal task run: %w", err))
	}

	p, err := storage.DocumentPath(taskRunsPrefix, run.ID)
	if err != nil {
		return cerr.WrapStorageWriteError("task_run", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storage.Write(ctx, p, data); err != nil {
		return cerr.WrapStorageWriteError("task_run", err)
	}

	paths, err := r.storage.List(ctx, taskRunsPrefix)
	if err != nil {
		return cerr.WrapStorageReadError("task_runs", err)
	}
	if len(paths) <= taskrun.MaxRuns {
		return nil
	}
	sort.Strings(paths)
	for _, p := range paths[:len(paths)-taskrun.MaxRuns] {
		if err := r.storage.Delete(ctx, p); err != nil {
			slog.WarnContext(ctx, "failed to prune task run", "path", p, "error", err)
		}
	}
	return nil
}

func (r *YAMLRepository) List(ctx context.Context, limit int) ([]*taskrun.TaskRun, error) {
	paths, err := r.storage.List(ctx, taskRunsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task_runs", err)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	runs := []*taskrun.TaskRun{}
	for _, p := range paths {
		if limit > 0 && len(runs) >= limit {
			break
		}
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var run taskrun.TaskRun
		if err := yaml.Unmarshal(data, &run); err != nil {
			continue
		}
		runs = append(runs, &run)
	}
	slices.SortStableFunc(runs, func(a, b *taskrun.TaskRun) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return runs, nil
}
