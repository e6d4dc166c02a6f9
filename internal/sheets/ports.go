package sheets

import (
	"context"
	"time"

	"pedidos/internal/core"
)

// Ports for run history and export adapters.
type (
	RunRecorder interface {
		SaveRun(ctx context.Context, run core.ReportRun) error
	}

	RunReader interface {
		GetRun(ctx context.Context, id string) (core.ReportRun, error)
		// ListRecentRuns returns the newest runs first.
		ListRecentRuns(ctx context.Context, limit int) ([]core.ReportRun, error)
	}

	// ExportQueue tracks which runs still have to reach the export sheet.
	// Runs marked exported or failed leave the pending list.
	ExportQueue interface {
		ListPendingExport(ctx context.Context, limit int) ([]core.ReportRun, error)
		MarkExported(ctx context.Context, id string, at time.Time) error
		MarkExportFailed(ctx context.Context, id string, at time.Time) error
	}

	// RunStore is the full run history backend.
	RunStore interface {
		RunRecorder
		RunReader
		ExportQueue
		Close() error
	}

	// RunExporter appends run summaries to an external spreadsheet.
	RunExporter interface {
		AppendRun(ctx context.Context, run core.ReportRun) (rowRef string, err error)
	}

	// ReportPublisher announces freshly generated runs.
	ReportPublisher interface {
		PublishReportGenerated(ctx context.Context, runID string) error
	}
)
