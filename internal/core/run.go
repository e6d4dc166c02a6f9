package core

import (
	"errors"
	"strings"
	"time"
)

// ReportRun is the persisted trace of one aggregation. It carries only the
// headline numbers; the order rows themselves are never stored.
type ReportRun struct {
	ID             string     `json:"id"`
	FileName       string     `json:"file_name"`
	FileSHA256     string     `json:"file_sha256"`
	RowsRead       int        `json:"rows_read"`
	OrderCount     int        `json:"order_count"`
	TotalSpend     Money      `json:"total_spend"`
	ExcludedRows   int        `json:"excluded_rows"`
	Years          []int      `json:"years"`
	StatusPolicy   string     `json:"status_policy"`
	CreatedAt      time.Time  `json:"created_at"`
	ExportedAt     *time.Time `json:"exported_at,omitempty"`
	ExportFailedAt *time.Time `json:"export_failed_at,omitempty"`
}

var ErrRunNotFound = errors.New("report run not found")

func (r ReportRun) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("run id cannot be empty")
	}
	if r.CreatedAt.IsZero() {
		return errors.New("run created_at cannot be zero")
	}
	if r.OrderCount < 0 || r.RowsRead < 0 || r.ExcludedRows < 0 {
		return errors.New("run counters cannot be negative")
	}
	return nil
}

// Exported reports whether the run was already pushed to the export sheet.
func (r ReportRun) Exported() bool {
	return r.ExportedAt != nil
}

// ExportFailed reports whether the export was given up after repeated failures.
func (r ReportRun) ExportFailed() bool {
	return r.ExportFailedAt != nil
}
