package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pedidos/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository keeps the history of report runs. Only run summaries are
// stored; order rows never leave the request that produced them.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) SaveRun(ctx context.Context, run core.ReportRun) error {
	if err := run.Validate(); err != nil {
		return err
	}
	row, err := toRow(run)
	if err != nil {
		return err
	}
	if err := r.queries.InsertRun(ctx, row); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (core.ReportRun, error) {
	row, err := r.queries.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ReportRun{}, core.ErrRunNotFound
	}
	if err != nil {
		return core.ReportRun{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return fromRow(row)
}

// ListRecentRuns returns the newest runs first.
func (r *SQLiteRepository) ListRecentRuns(ctx context.Context, limit int) ([]core.ReportRun, error) {
	rows, err := r.queries.ListRecentRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return fromRows(rows)
}

// ListPendingExport returns the oldest runs not yet exported.
func (r *SQLiteRepository) ListPendingExport(ctx context.Context, limit int) ([]core.ReportRun, error) {
	rows, err := r.queries.ListPendingExport(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	return fromRows(rows)
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id string, at time.Time) error {
	n, err := r.queries.MarkExported(ctx, at.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark run exported: %w", err)
	}
	if n == 0 {
		return core.ErrRunNotFound
	}
	return nil
}

func (r *SQLiteRepository) MarkExportFailed(ctx context.Context, id string, at time.Time) error {
	n, err := r.queries.MarkExportFailed(ctx, at.UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark run export failed: %w", err)
	}
	if n == 0 {
		return core.ErrRunNotFound
	}
	return nil
}

func toRow(run core.ReportRun) (ReportRunRow, error) {
	years := run.Years
	if years == nil {
		years = []int{}
	}
	encoded, err := json.Marshal(years)
	if err != nil {
		return ReportRunRow{}, fmt.Errorf("encode years: %w", err)
	}
	row := ReportRunRow{
		ID:           run.ID,
		FileName:     run.FileName,
		FileSha256:   run.FileSHA256,
		RowsRead:     int64(run.RowsRead),
		OrderCount:   int64(run.OrderCount),
		TotalCents:   run.TotalSpend.Cents,
		ExcludedRows: int64(run.ExcludedRows),
		Years:        string(encoded),
		StatusPolicy: run.StatusPolicy,
		CreatedAt:    run.CreatedAt.UTC().Format(timeLayout),
	}
	if run.ExportedAt != nil {
		row.ExportedAt = sql.NullString{String: run.ExportedAt.UTC().Format(timeLayout), Valid: true}
	}
	if run.ExportFailedAt != nil {
		row.ExportFailedAt = sql.NullString{String: run.ExportFailedAt.UTC().Format(timeLayout), Valid: true}
	}
	return row, nil
}

func fromRow(row ReportRunRow) (core.ReportRun, error) {
	run := core.ReportRun{
		ID:           row.ID,
		FileName:     row.FileName,
		FileSHA256:   row.FileSha256,
		RowsRead:     int(row.RowsRead),
		OrderCount:   int(row.OrderCount),
		TotalSpend:   core.Money{Cents: row.TotalCents},
		ExcludedRows: int(row.ExcludedRows),
		StatusPolicy: row.StatusPolicy,
	}
	if err := json.Unmarshal([]byte(row.Years), &run.Years); err != nil {
		return core.ReportRun{}, fmt.Errorf("decode years of run %s: %w", row.ID, err)
	}
	created, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return core.ReportRun{}, fmt.Errorf("decode created_at of run %s: %w", row.ID, err)
	}
	run.CreatedAt = created
	if row.ExportedAt.Valid {
		at, err := time.Parse(timeLayout, row.ExportedAt.String)
		if err != nil {
			return core.ReportRun{}, fmt.Errorf("decode exported_at of run %s: %w", row.ID, err)
		}
		run.ExportedAt = &at
	}
	if row.ExportFailedAt.Valid {
		at, err := time.Parse(timeLayout, row.ExportFailedAt.String)
		if err != nil {
			return core.ReportRun{}, fmt.Errorf("decode export_failed_at of run %s: %w", row.ID, err)
		}
		run.ExportFailedAt = &at
	}
	return run, nil
}

func fromRows(rows []ReportRunRow) ([]core.ReportRun, error) {
	runs := make([]core.ReportRun, 0, len(rows))
	for _, row := range rows {
		run, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
