package repositoryimpl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/missionctl/missionctl/internal/task"
	"github.com/missionctl/missionctl/pkg/cerr"
)

const boardTasksSchema = `
create table if not exists board_tasks (
	id          text primary key,
	title       text not null,
	description text not null default '',
	assignee    text not null default 'assistant',
	status      text not null default 'backlog',
	priority    text not null default 'normal',
	due_at      timestamptz,
	created_at  timestamptz not null default now(),
	updated_at  timestamptz not null default now()
)`

const boardTasksIDType = `
select data_type from information_schema.columns
where table_schema = current_schema() and table_name = 'board_tasks' and column_name = 'id'`

const taskColumns = "id, title, description, assignee, status, priority, due_at, created_at, updated_at"

// PostgresRepository stores tasks in the board_tasks table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to databaseURL, verifies the connection and
// creates the board_tasks table when missing.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	defer cancelPing()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, boardTasksSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create board_tasks: %w", err)
	}
	var idType string
	if err := pool.QueryRow(ctx, boardTasksIDType).Scan(&idType); err != nil {
		pool.Close()
		return nil, fmt.Errorf("inspect board_tasks: %w", err)
	}
	if err := checkIDColumn(idType); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepository{pool: pool}, nil
}

// checkIDColumn rejects a pre-existing board_tasks table whose id column
// cannot hold ULIDs, such as one with serial integer ids.
func checkIDColumn(dataType string) error {
	switch dataType {
	case "text", "character varying":
		return nil
	}
	return fmt.Errorf("board_tasks.id has type %q; task ids are ULID strings, so use a database without this table or migrate the column to text", dataType)
}

func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *PostgresRepository) Create(ctx context.Context, t *task.Task) error {
	tag, err := r.pool.Exec(ctx, `
		insert into board_tasks (`+taskColumns+`)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		on conflict (id) do nothing`,
		t.ID, t.Title, t.Description, t.Assignee, string(t.Status), string(t.Priority), t.DueAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	if tag.RowsAffected() == 0 {
		return cerr.NewError(cerr.AlreadyExists, "task already exists", nil)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	return getTask(ctx, r.pool, id, "")
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getTask(ctx context.Context, q rowQuerier, id, suffix string) (*task.Task, error) {
	t, err := scanTask(q.QueryRow(ctx, "select "+taskColumns+" from board_tasks where id = $1"+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cerr.NewError(cerr.NotFound, "task not found", err)
		}
		return nil, cerr.WrapStorageReadError("task", err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*task.Task, error) {
	rows, err := r.pool.Query(ctx, "select "+taskColumns+" from board_tasks order by created_at desc, id desc")
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	defer rows.Close()

	all := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("tasks", err)
		}
		all = append(all, t)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	return all, nil
}

// Update locks the row for the duration of fn.
func (r *PostgresRepository) Update(ctx context.Context, id string, fn func(*task.Task) error) (*task.Task, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, cerr.WrapStorageWriteError("task", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := getTask(ctx, tx, id, " for update")
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	t.ID = id
	_, err = tx.Exec(ctx, `
		update board_tasks
		set title = $2, description = $3, assignee = $4, status = $5,
		    priority = $6, due_at = $7, updated_at = $8
		where id = $1`,
		id, t.Title, t.Description, t.Assignee, string(t.Status), string(t.Priority), t.DueAt, t.UpdatedAt)
	if err != nil {
		return nil, cerr.WrapStorageWriteError("task", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, cerr.WrapStorageWriteError("task", err)
	}
	return t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "delete from board_tasks where id = $1", id)
	if err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	if tag.RowsAffected() == 0 {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t                task.Task
		status, priority string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Assignee, &status, &priority,
		&t.DueAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.Priority = task.Priority(priority)
	return &t, nil
}
