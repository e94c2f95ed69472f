package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Run struct {
	ID         string
	Operation  string
	StartedAt  int64
	FinishedAt sql.NullInt64
	Status     string
	Detail     string
}

type RunItem struct {
	ID        int64
	RunID     string
	Label     string
	Outcome   string
	Detail    string
	Applied   bool
	CreatedAt int64
}

type CreateRunParams struct {
	ID        string
	Operation string
	StartedAt int64
}

const createRun = `
INSERT INTO runs (id, operation, started_at, status)
VALUES (?, ?, ?, 'running')
`

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun, arg.ID, arg.Operation, arg.StartedAt)
	return err
}

type FinishRunParams struct {
	ID         string
	FinishedAt int64
	Status     string
	Detail     string
}

const finishRun = `
UPDATE runs SET finished_at = ?, status = ?, detail = ? WHERE id = ?
`

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun, arg.FinishedAt, arg.Status, arg.Detail, arg.ID)
	return err
}

type CreateRunItemParams struct {
	RunID     string
	Label     string
	Outcome   string
	Detail    string
	Applied   bool
	CreatedAt int64
}

const createRunItem = `
INSERT INTO run_items (run_id, label, outcome, detail, applied, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateRunItem(ctx context.Context, arg CreateRunItemParams) error {
	_, err := q.db.ExecContext(
		ctx, createRunItem,
		arg.RunID, arg.Label, arg.Outcome, arg.Detail, arg.Applied, arg.CreatedAt,
	)
	return err
}

const listRuns = `
SELECT id, operation, started_at, finished_at, status, detail
FROM runs
ORDER BY started_at DESC
LIMIT ?
`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(&r.ID, &r.Operation, &r.StartedAt, &r.FinishedAt, &r.Status, &r.Detail)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listRunItems = `
SELECT id, run_id, label, outcome, detail, applied, created_at
FROM run_items
WHERE run_id = ?
ORDER BY id ASC
`

func (q *Queries) ListRunItems(ctx context.Context, runID string) ([]RunItem, error) {
	rows, err := q.db.QueryContext(ctx, listRunItems, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunItem
	for rows.Next() {
		var item RunItem
		err := rows.Scan(
			&item.ID, &item.RunID, &item.Label, &item.Outcome,
			&item.Detail, &item.Applied, &item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
