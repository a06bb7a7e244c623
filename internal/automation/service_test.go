package automation_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/automation"
	"github.com/missionctl/missionctl/internal/automation/repositoryimpl"
)

type fakeTasks struct {
	mu    sync.Mutex
	tasks map[string]*automation.TaskRecord
}

func (f *fakeTasks) LookupTask(_ context.Context, id string) (*automation.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) SetAssignee(_ context.Context, id, assignee string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		t.Assignee = assignee
	}
	return nil
}

func newService(t *testing.T, tasks map[string]*automation.TaskRecord) *automation.Service {
	t.Helper()
	db, err := repositoryimpl.Open(context.Background(), filepath.Join(t.TempDir(), "automation.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return automation.NewService(
		repositoryimpl.NewRuleRepository(db),
		repositoryimpl.NewMetadataRepository(db),
		repositoryimpl.NewDecisionRepository(db),
		&fakeTasks{tasks: tasks},
		automation.WithClock(func() time.Time { return now }),
	)
}

func ptr(s string) *string { return &s }

func TestListRulesSeedsDefaults(t *testing.T) {
	svc := newService(t, nil)
	rules, err := svc.ListRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 4)
	for i := 1; i < len(rules); i++ {
		assert.GreaterOrEqual(t, rules[i-1].Priority, rules[i].Priority)
	}
}

func TestRuleLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	created, err := svc.CreateRule(ctx, automation.RulePatch{
		Name:     ptr("Deploys"),
		AssignTo: ptr("OPS"),
		Keywords: []string{" Client ", "CLIENT", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"client"}, created.Keywords)

	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 5)

	prio := 200
	updated, err := svc.UpdateRule(ctx, created.ID, automation.RulePatch{Priority: &prio})
	require.NoError(t, err)
	assert.Equal(t, 200, updated.Priority)

	// Same keyword score as the FRIDAY rule, higher priority.
	res, err := svc.Preview(ctx, automation.Draft{Title: ptr("client call")})
	require.NoError(t, err)
	assert.Equal(t, "OPS", res.AssignedAgent)

	ok, err := svc.DeleteRule(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.DeleteRule(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.UpdateRule(ctx, "rule-missing", automation.RulePatch{Priority: &prio})
	assert.Error(t, err)
}

func TestAssignTaskMergesMetadata(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, map[string]*automation.TaskRecord{
		"1": {ID: "1", Title: "Tidy the garage", Description: "weekend"},
	})

	d, err := svc.AssignTask(ctx, "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "assistant", d.AssignedAgent)

	_, err = svc.UpsertMetadata(ctx, "1", automation.MetadataPatch{Tags: []string{"Home"}})
	require.NoError(t, err)

	d, err = svc.AssignTask(ctx, "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "VERONICA", d.AssignedAgent)
	assert.Equal(t, "rule-personal-veronica", *d.MatchedRuleID)
	assert.Nil(t, d.ManualOverride)

	// The override's tags win over stored metadata.
	d, err = svc.AssignTask(ctx, "1", &automation.Draft{Tags: []string{"pc1"}})
	require.NoError(t, err)
	assert.Equal(t, "KAREN", d.AssignedAgent)

	stored, err := svc.GetDecision(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "KAREN", stored.AssignedAgent)
}

func TestAssignTaskManualOverrideFromMetadata(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, map[string]*automation.TaskRecord{
		"2": {ID: "2", Title: "client invoice"},
	})
	_, err := svc.UpsertMetadata(ctx, "2", automation.MetadataPatch{ManualOverride: automation.SetString("scout")})
	require.NoError(t, err)

	d, err := svc.AssignTask(ctx, "2", nil)
	require.NoError(t, err)
	assert.Equal(t, "scout", d.AssignedAgent)
	assert.Equal(t, 1.0, d.Confidence)
	require.NotNil(t, d.ManualOverride)
	assert.Equal(t, "scout", *d.ManualOverride)

	// Clearing the override restores rule evaluation.
	_, err = svc.UpsertMetadata(ctx, "2", automation.MetadataPatch{ManualOverride: automation.OptionalString{Set: true}})
	require.NoError(t, err)
	d, err = svc.AssignTask(ctx, "2", nil)
	require.NoError(t, err)
	assert.Equal(t, "FRIDAY", d.AssignedAgent)
}

func TestAssignTaskMissing(t *testing.T) {
	svc := newService(t, nil)
	d, err := svc.AssignTask(context.Background(), "404", nil)
	require.NoError(t, err)
	assert.Nil(t, d)

	decisions, err := svc.ListDecisions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestConcurrentMetadataUpsertsKeepEveryField(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	var wg sync.WaitGroup
	patches := []automation.MetadataPatch{
		{Tags: []string{"work"}},
		{Project: automation.SetString("ops")},
		{Type: automation.SetString("pc1")},
		{ManualOverride: automation.SetString("KAREN")},
	}
	for _, p := range patches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpsertMetadata(ctx, "9", p)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	m, err := svc.GetMetadata(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, m.Tags)
	assert.Equal(t, "ops", *m.Project)
	assert.Equal(t, "pc1", *m.Type)
	assert.Equal(t, "KAREN", *m.ManualOverride)
}

func TestForgetTask(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, map[string]*automation.TaskRecord{"3": {ID: "3", Title: "x"}})
	_, err := svc.UpsertMetadata(ctx, "3", automation.MetadataPatch{Tags: []string{"a"}})
	require.NoError(t, err)
	_, err = svc.AssignTask(ctx, "3", nil)
	require.NoError(t, err)

	require.NoError(t, svc.ForgetTask(ctx, "3"))
	require.NoError(t, svc.ForgetTask(ctx, "3"))

	m, err := svc.GetMetadata(ctx, "3")
	require.NoError(t, err)
	assert.Nil(t, m)
}
