package automation

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/missionctl/missionctl/pkg/cerr"
)

// Service is the task automation engine: rule CRUD, metadata, evaluation and
// assignment.
type Service struct {
	rules     RuleRepository
	metadata  MetadataRepository
	decisions DecisionRepository
	tasks     TaskStore
	weights   Weights
	now       Clock
	seeded    atomic.Bool
}

type Option func(*Service)

func WithWeights(w Weights) Option {
	return func(s *Service) { s.weights = w }
}

func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

func NewService(rules RuleRepository, metadata MetadataRepository, decisions DecisionRepository, tasks TaskStore, opts ...Option) *Service {
	s := &Service{
		rules:     rules,
		metadata:  metadata,
		decisions: decisions,
		tasks:     tasks,
		weights:   DefaultWeights,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ensureSeeded(ctx context.Context) error {
	if s.seeded.Load() {
		return nil
	}
	seeded, err := s.rules.SeedOnce(ctx, DefaultRules(s.now().UTC()))
	if err != nil {
		return err
	}
	if seeded {
		slog.InfoContext(ctx, "installed default automation rules")
	}
	s.seeded.Store(true)
	return nil
}

// ListRules returns every rule by priority descending, installing the
// default rule set on first use.
func (s *Service) ListRules(ctx context.Context) ([]*Rule, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	return s.rules.List(ctx)
}

func (s *Service) CreateRule(ctx context.Context, p RulePatch) (*Rule, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	rule := NewRule(p, s.now().UTC())
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule applies p to the rule with the given id. It fails with
// cerr.NotFound when no such rule exists.
func (s *Service) UpdateRule(ctx context.Context, id string, p RulePatch) (*Rule, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	return s.rules.Update(ctx, id, func(r *Rule) error {
		p.Apply(r, s.now().UTC())
		return nil
	})
}

// DeleteRule reports whether a rule was removed.
func (s *Service) DeleteRule(ctx context.Context, id string) (bool, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return false, err
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) GetMetadata(ctx context.Context, taskID string) (*Metadata, error) {
	return s.metadata.Get(ctx, taskID)
}

func (s *Service) ListMetadata(ctx context.Context) ([]*Metadata, error) {
	return s.metadata.List(ctx)
}

// UpsertMetadata overlays p on the stored metadata for taskID.
func (s *Service) UpsertMetadata(ctx context.Context, taskID string, p MetadataPatch) (*Metadata, error) {
	if taskID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "taskId is required", nil)
	}
	return s.metadata.Upsert(ctx, taskID, func(prev *Metadata) *Metadata {
		return p.Apply(taskID, prev, s.now().UTC())
	})
}

func (s *Service) GetDecision(ctx context.Context, taskID string) (*Decision, error) {
	return s.decisions.Get(ctx, taskID)
}

func (s *Service) ListDecisions(ctx context.Context) ([]*Decision, error) {
	return s.decisions.List(ctx)
}

// Preview evaluates draft against the current enabled rules without storing
// anything.
func (s *Service) Preview(ctx context.Context, draft Draft) (*Result, error) {
	if draft.ManualOverride != nil && *draft.ManualOverride != "" {
		res := Evaluate(nil, draft, s.weights)
		return &res, nil
	}
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	res := Evaluate(rules, draft, s.weights)
	return &res, nil
}

// AssignTask evaluates the stored task merged with its metadata and the
// optional override, and records the decision. It returns nil without error
// when the task does not exist.
func (s *Service) AssignTask(ctx context.Context, taskID string, override *Draft) (*Decision, error) {
	task, err := s.tasks.LookupTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	meta, err := s.metadata.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	draft := mergeDraft(task, meta, override)
	res, err := s.Preview(ctx, draft)
	if err != nil {
		return nil, err
	}

	d := &Decision{
		TaskID:          taskID,
		MatchedRuleID:   res.MatchedRuleID,
		MatchedRuleName: res.MatchedRuleName,
		AssignedAgent:   res.AssignedAgent,
		Confidence:      res.Confidence,
		Reason:          res.Reason,
		Timestamp:       s.now().UTC(),
		ManualOverride:  draft.ManualOverride,
	}
	if err := s.decisions.Put(ctx, d); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "automation decision recorded",
		"task_id", taskID, "agent", d.AssignedAgent, "confidence", d.Confidence)
	return d, nil
}

// ForgetTask drops the metadata and decision kept for a deleted task.
func (s *Service) ForgetTask(ctx context.Context, taskID string) error {
	return errors.Join(
		ignoreNotFound(s.metadata.Delete(ctx, taskID)),
		ignoreNotFound(s.decisions.Delete(ctx, taskID)),
	)
}

// mergeDraft resolves each field from the override first, then the stored
// metadata, then the task itself.
func mergeDraft(task *TaskRecord, meta *Metadata, override *Draft) Draft {
	if override == nil {
		override = &Draft{}
	}
	if meta == nil {
		meta = &Metadata{}
	}
	title, description := task.Title, task.Description
	d := Draft{
		Title:          firstString(override.Title, &title),
		Description:    firstString(override.Description, &description),
		Project:        firstString(override.Project, meta.Project),
		Type:           firstString(override.Type, meta.Type),
		ManualOverride: firstString(override.ManualOverride, meta.ManualOverride),
	}
	switch {
	case override.Tags != nil:
		d.Tags = override.Tags
	case meta.Tags != nil:
		d.Tags = meta.Tags
	default:
		d.Tags = []string{}
	}
	return d
}

func firstString(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func ignoreNotFound(err error) error {
	if cerr.IsCode(err, cerr.NotFound) {
		return nil
	}
	return err
}
