package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// ReportRunRow mirrors one report_runs row.
type ReportRunRow struct {
	ID             string
	FileName       string
	FileSha256     string
	RowsRead       int64
	OrderCount     int64
	TotalCents     int64
	ExcludedRows   int64
	Years          string
	StatusPolicy   string
	CreatedAt      string
	ExportedAt     sql.NullString
	ExportFailedAt sql.NullString
}

const runColumns = `id, file_name, file_sha256, rows_read, order_count, total_cents, excluded_rows, years, status_policy, created_at, exported_at, export_failed_at`

const insertRun = `INSERT INTO report_runs (` + runColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertRun(ctx context.Context, arg ReportRunRow) error {
	_, err := q.db.ExecContext(ctx, insertRun,
		arg.ID,
		arg.FileName,
		arg.FileSha256,
		arg.RowsRead,
		arg.OrderCount,
		arg.TotalCents,
		arg.ExcludedRows,
		arg.Years,
		arg.StatusPolicy,
		arg.CreatedAt,
		arg.ExportedAt,
		arg.ExportFailedAt,
	)
	return err
}

const getRun = `SELECT ` + runColumns + ` FROM report_runs WHERE id = ?`

func (q *Queries) GetRun(ctx context.Context, id string) (ReportRunRow, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	var i ReportRunRow
	err := scanRun(row, &i)
	return i, err
}

const listRecentRuns = `SELECT ` + runColumns + ` FROM report_runs
ORDER BY created_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListRecentRuns(ctx context.Context, limit int64) ([]ReportRunRow, error) {
	return q.listRuns(ctx, listRecentRuns, limit)
}

const listPendingExport = `SELECT ` + runColumns + ` FROM report_runs
WHERE exported_at IS NULL AND export_failed_at IS NULL
ORDER BY created_at ASC, id ASC
LIMIT ?`

func (q *Queries) ListPendingExport(ctx context.Context, limit int64) ([]ReportRunRow, error) {
	return q.listRuns(ctx, listPendingExport, limit)
}

const markExported = `UPDATE report_runs SET exported_at = ? WHERE id = ?`

func (q *Queries) MarkExported(ctx context.Context, exportedAt string, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markExported, exportedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markExportFailed = `UPDATE report_runs SET export_failed_at = ? WHERE id = ?`

func (q *Queries) MarkExportFailed(ctx context.Context, failedAt string, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markExportFailed, failedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) listRuns(ctx context.Context, query string, limit int64) ([]ReportRunRow, error) {
	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReportRunRow
	for rows.Next() {
		var i ReportRunRow
		if err := scanRun(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner, i *ReportRunRow) error {
	return s.Scan(
		&i.ID,
		&i.FileName,
		&i.FileSha256,
		&i.RowsRead,
		&i.OrderCount,
		&i.TotalCents,
		&i.ExcludedRows,
		&i.Years,
		&i.StatusPolicy,
		&i.CreatedAt,
		&i.ExportedAt,
		&i.ExportFailedAt,
	)
}
