package repositoryimpl

import (
	"context"
	"database/sql"

	"github.com/missionctl/missionctl/internal/automation"
	"github.com/missionctl/missionctl/pkg/cerr"
)

const decisionColumns = "task_id, matched_rule_id, matched_rule_name, assigned_agent, confidence, reason, manual_override, decided_at"

type DecisionRepository struct {
	db *sql.DB
}

func NewDecisionRepository(db *sql.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Get(ctx context.Context, taskID string) (*automation.Decision, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+decisionColumns+" FROM automation_decisions WHERE task_id = ?", taskID)
	d, err := scanDecision(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, cerr.WrapStorageReadError("automation decision", err)
	}
	return d, nil
}

// List returns decisions newest first.
func (r *DecisionRepository) List(ctx context.Context) ([]*automation.Decision, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+decisionColumns+" FROM automation_decisions ORDER BY decided_at DESC, task_id")
	if err != nil {
		return nil, cerr.WrapStorageReadError("automation decisions", err)
	}
	defer rows.Close()

	list := []*automation.Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("automation decisions", err)
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("automation decisions", err)
	}
	return list, nil
}

// Put replaces the decision stored for d.TaskID.
func (r *DecisionRepository) Put(ctx context.Context, d *automation.Decision) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO automation_decisions (`+decisionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			matched_rule_id = excluded.matched_rule_id,
			matched_rule_name = excluded.matched_rule_name,
			assigned_agent = excluded.assigned_agent,
			confidence = excluded.confidence,
			reason = excluded.reason,
			manual_override = excluded.manual_override,
			decided_at = excluded.decided_at`,
		d.TaskID, nullString(d.MatchedRuleID), nullString(d.MatchedRuleName), d.AssignedAgent,
		d.Confidence, d.Reason, nullString(d.ManualOverride), formatTime(d.Timestamp))
	if err != nil {
		return cerr.WrapStorageWriteError("automation decision", err)
	}
	return nil
}

func (r *DecisionRepository) Delete(ctx context.Context, taskID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM automation_decisions WHERE task_id = ?", taskID)
	if err != nil {
		return cerr.WrapStorageDeleteError("automation decision", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cerr.NewError(cerr.NotFound, "automation decision not found", nil)
	}
	return nil
}

func scanDecision(s scanner) (*automation.Decision, error) {
	var (
		d                          automation.Decision
		ruleID, ruleName, override sql.NullString
		decidedAt                  string
	)
	if err := s.Scan(&d.TaskID, &ruleID, &ruleName, &d.AssignedAgent, &d.Confidence,
		&d.Reason, &override, &decidedAt); err != nil {
		return nil, err
	}
	t, err := parseTime(decidedAt)
	if err != nil {
		return nil, err
	}
	d.Timestamp = t
	d.MatchedRuleID = stringPtr(ruleID)
	d.MatchedRuleName = stringPtr(ruleName)
	d.ManualOverride = stringPtr(override)
	return &d, nil
}
