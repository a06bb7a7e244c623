package taskrun

import "context"

type Repository interface {
	// Push stores run and prunes everything beyond the newest MaxRuns.
	Push(ctx context.Context, run *TaskRun) error
	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]*TaskRun, error)
}

// Recorder appends runs on behalf of other handlers. Failures are logged by
// the caller and never abort the operation being audited.
type Recorder interface {
	Record(ctx context.Context, in Input) (*TaskRun, error)
}

type recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) Recorder {
	return &recorder{repo: repo}
}

func (r *recorder) Record(ctx context.Context, in Input) (*TaskRun, error) {
	run := New(in)
	if err := r.repo.Push(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}
