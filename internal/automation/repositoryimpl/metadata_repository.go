package repositoryimpl

import (
	"context"
	"database/sql"

	"github.com/missionctl/missionctl/internal/automation"
	"github.com/missionctl/missionctl/pkg/cerr"
)

const metadataColumns = "task_id, tags, project, type, manual_override, updated_at"

type MetadataRepository struct {
	db *sql.DB
}

func NewMetadataRepository(db *sql.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

func (r *MetadataRepository) Get(ctx context.Context, taskID string) (*automation.Metadata, error) {
	m, err := getMetadata(ctx, r.db, taskID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task metadata", err)
	}
	return m, nil
}

func getMetadata(ctx context.Context, q queryRower, taskID string) (*automation.Metadata, error) {
	row := q.QueryRowContext(ctx, "SELECT "+metadataColumns+" FROM automation_task_metadata WHERE task_id = ?", taskID)
	m, err := scanMetadata(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MetadataRepository) List(ctx context.Context) ([]*automation.Metadata, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+metadataColumns+" FROM automation_task_metadata ORDER BY task_id")
	if err != nil {
		return nil, cerr.WrapStorageReadError("task metadata", err)
	}
	defer rows.Close()

	list := []*automation.Metadata{}
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("task metadata", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("task metadata", err)
	}
	return list, nil
}

func (r *MetadataRepository) Upsert(ctx context.Context, taskID string, fn func(prev *automation.Metadata) *automation.Metadata) (*automation.Metadata, error) {
	var next *automation.Metadata
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		prev, err := getMetadata(ctx, tx, taskID)
		if err != nil {
			return err
		}
		next = fn(prev)
		tags, err := encodeList(next.Tags)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO automation_task_metadata (`+metadataColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(task_id) DO UPDATE SET
				tags = excluded.tags,
				project = excluded.project,
				type = excluded.type,
				manual_override = excluded.manual_override,
				updated_at = excluded.updated_at`,
			taskID, tags, nullString(next.Project), nullString(next.Type),
			nullString(next.ManualOverride), formatTime(next.UpdatedAt))
		return err
	})
	if err != nil {
		return nil, cerr.WrapStorageWriteError("task metadata", err)
	}
	return next, nil
}

func (r *MetadataRepository) Delete(ctx context.Context, taskID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM automation_task_metadata WHERE task_id = ?", taskID)
	if err != nil {
		return cerr.WrapStorageDeleteError("task metadata", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return cerr.NewError(cerr.NotFound, "task metadata not found", nil)
	}
	return nil
}

func scanMetadata(s scanner) (*automation.Metadata, error) {
	var (
		m                      automation.Metadata
		tags, updatedAt        string
		project, typ, override sql.NullString
	)
	if err := s.Scan(&m.TaskID, &tags, &project, &typ, &override, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if m.Tags, err = decodeList(tags); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	m.Project = stringPtr(project)
	m.Type = stringPtr(typ)
	m.ManualOverride = stringPtr(override)
	return &m, nil
}
