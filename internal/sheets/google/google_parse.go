package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pedidos/internal/core"
)

// Sheet layout, one run per row.
var header = []string{"ID", "Created", "File", "SHA256", "Rows", "Orders", "Total", "Excluded", "Years", "Policy"}

const lastColumn = "J"

func runToRow(run core.ReportRun) []any {
	years := make([]string, 0, len(run.Years))
	for _, y := range run.Years {
		years = append(years, strconv.Itoa(y))
	}
	return []any{
		run.ID,
		run.CreatedAt.UTC().Format(time.RFC3339),
		run.FileName,
		run.FileSHA256,
		run.RowsRead,
		run.OrderCount,
		run.TotalSpend.String(),
		run.ExcludedRows,
		strings.Join(years, ";"),
		run.StatusPolicy,
	}
}

func rowsToRuns(values [][]interface{}) []core.ReportRun {
	runs := make([]core.ReportRun, 0, len(values))
	for _, raw := range values {
		cols := toStrings(raw)
		if len(cols) == 0 || strings.EqualFold(safeGet(cols, 0), header[0]) {
			continue
		}
		run, err := parseRun(cols)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs
}

func parseRun(cols []string) (core.ReportRun, error) {
	created, err := time.Parse(time.RFC3339, safeGet(cols, 1))
	if err != nil {
		return core.ReportRun{}, fmt.Errorf("created: %w", err)
	}
	total, err := core.ParseAmount(safeGet(cols, 6))
	if err != nil {
		return core.ReportRun{}, fmt.Errorf("total: %w", err)
	}
	run := core.ReportRun{
		ID:           safeGet(cols, 0),
		CreatedAt:    created,
		FileName:     safeGet(cols, 2),
		FileSHA256:   safeGet(cols, 3),
		RowsRead:     atoi(safeGet(cols, 4)),
		OrderCount:   atoi(safeGet(cols, 5)),
		TotalSpend:   total,
		ExcludedRows: atoi(safeGet(cols, 7)),
		StatusPolicy: safeGet(cols, 9),
		Years:        []int{},
	}
	for _, y := range strings.Split(safeGet(cols, 8), ";") {
		if n, err := strconv.Atoi(strings.TrimSpace(y)); err == nil {
			run.Years = append(run.Years, n)
		}
	}
	if err := run.Validate(); err != nil {
		return core.ReportRun{}, err
	}
	return run, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
