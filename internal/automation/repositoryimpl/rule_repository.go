package repositoryimpl

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/missionctl/missionctl/internal/automation"
	"github.com/missionctl/missionctl/pkg/cerr"
)

const (
	ruleColumns    = "id, name, enabled, priority, assign_to, keywords, tags, projects, types, created_at, updated_at"
	rulesSeededKey = "rules_seeded"
)

type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) List(ctx context.Context) ([]*automation.Rule, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+ruleColumns+" FROM automation_rules ORDER BY priority DESC, seq ASC")
	if err != nil {
		return nil, cerr.WrapStorageReadError("automation rules", err)
	}
	defer rows.Close()

	rules := []*automation.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("automation rules", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("automation rules", err)
	}
	return rules, nil
}

func (r *RuleRepository) Get(ctx context.Context, id string) (*automation.Rule, error) {
	return getRule(ctx, r.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRule(ctx context.Context, q queryRower, id string) (*automation.Rule, error) {
	row := q.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM automation_rules WHERE id = ?", id)
	rule, err := scanRule(row)
	if err != nil {
		if isNoRows(err) {
			return nil, cerr.NewError(cerr.NotFound, "rule not found", err)
		}
		return nil, cerr.WrapStorageReadError("automation rule", err)
	}
	return rule, nil
}

func (r *RuleRepository) Create(ctx context.Context, rule *automation.Rule) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM automation_rules WHERE id = ?", rule.ID).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("rule %s already exists", rule.ID), nil)
		}
		return insertRule(ctx, tx, rule)
	})
	if err != nil {
		return cerr.WrapStorageWriteError("automation rule", err)
	}
	return nil
}

func (r *RuleRepository) Update(ctx context.Context, id string, fn func(*automation.Rule) error) (*automation.Rule, error) {
	var updated *automation.Rule
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rule, err := getRule(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(rule); err != nil {
			return err
		}
		// The id is the key and cannot be changed by an update.
		rule.ID = id
		keywords, tags, projects, types, err := encodeMatchers(rule)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE automation_rules SET
			name = ?, enabled = ?, priority = ?, assign_to = ?,
			keywords = ?, tags = ?, projects = ?, types = ?, updated_at = ?
			WHERE id = ?`,
			rule.Name, rule.Enabled, rule.Priority, rule.AssignTo,
			keywords, tags, projects, types, formatTime(rule.UpdatedAt), id)
		if err != nil {
			return err
		}
		updated = rule
		return nil
	})
	if err != nil {
		return nil, cerr.WrapStorageWriteError("automation rule", err)
	}
	return updated, nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM automation_rules WHERE id = ?", id)
	if err != nil {
		return cerr.WrapStorageDeleteError("automation rule", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return cerr.WrapStorageDeleteError("automation rule", err)
	}
	if n == 0 {
		return cerr.NewError(cerr.NotFound, "rule not found", nil)
	}
	return nil
}

func (r *RuleRepository) SeedOnce(ctx context.Context, rules []*automation.Rule) (bool, error) {
	seeded := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var done int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM automation_state WHERE key = ?", rulesSeededKey).Scan(&done); err != nil {
			return err
		}
		if done > 0 {
			return nil
		}
		for _, rule := range rules {
			if err := insertRule(ctx, tx, rule); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO automation_state (key, value) VALUES (?, ?)", rulesSeededKey, "1"); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, cerr.WrapStorageWriteError("automation rules", err)
	}
	return seeded, nil
}

func insertRule(ctx context.Context, tx *sql.Tx, rule *automation.Rule) error {
	keywords, tags, projects, types, err := encodeMatchers(rule)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "INSERT OR IGNORE INTO automation_rules ("+ruleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rule.ID, rule.Name, rule.Enabled, rule.Priority, rule.AssignTo,
		keywords, tags, projects, types,
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt))
	return err
}

func encodeMatchers(rule *automation.Rule) (keywords, tags, projects, types string, err error) {
	if keywords, err = encodeList(rule.Keywords); err != nil {
		return
	}
	if tags, err = encodeList(rule.Tags); err != nil {
		return
	}
	if projects, err = encodeList(rule.Projects); err != nil {
		return
	}
	types, err = encodeList(rule.Types)
	return
}

func scanRule(s scanner) (*automation.Rule, error) {
	var (
		rule                            automation.Rule
		keywords, tags, projects, types string
		createdAt, updatedAt            string
	)
	if err := s.Scan(&rule.ID, &rule.Name, &rule.Enabled, &rule.Priority, &rule.AssignTo,
		&keywords, &tags, &projects, &types, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if rule.Keywords, err = decodeList(keywords); err != nil {
		return nil, err
	}
	if rule.Tags, err = decodeList(tags); err != nil {
		return nil, err
	}
	if rule.Projects, err = decodeList(projects); err != nil {
		return nil, err
	}
	if rule.Types, err = decodeList(types); err != nil {
		return nil, err
	}
	if rule.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rule, nil
}
