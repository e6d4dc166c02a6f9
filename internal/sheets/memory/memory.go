package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"pedidos/internal/core"
)

// Store keeps run history in process memory. It is the default backend.
type Store struct {
	mu   sync.Mutex
	runs map[string]core.ReportRun
	seq  map[string]int
	next int
}

func New() *Store {
	return &Store{runs: map[string]core.ReportRun{}, seq: map[string]int{}}
}

func (s *Store) SaveRun(_ context.Context, run core.ReportRun) error {
	if err := run.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		s.seq[run.ID] = s.next
		s.next++
	}
	s.runs[run.ID] = clone(run)
	return nil
}

func (s *Store) GetRun(_ context.Context, id string) (core.ReportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return core.ReportRun{}, core.ErrRunNotFound
	}
	return clone(run), nil
}

func (s *Store) ListRecentRuns(_ context.Context, limit int) ([]core.ReportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.sorted(func(a, b core.ReportRun) bool { return s.later(a, b) }, nil)
	return truncate(runs, limit), nil
}

func (s *Store) ListPendingExport(_ context.Context, limit int) ([]core.ReportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.sorted(
		func(a, b core.ReportRun) bool { return s.later(b, a) },
		func(r core.ReportRun) bool { return !r.Exported() && !r.ExportFailed() },
	)
	return truncate(runs, limit), nil
}

func (s *Store) MarkExported(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return core.ErrRunNotFound
	}
	at = at.UTC()
	run.ExportedAt = &at
	s.runs[id] = run
	return nil
}

func (s *Store) MarkExportFailed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return core.ErrRunNotFound
	}
	at = at.UTC()
	run.ExportFailedAt = &at
	s.runs[id] = run
	return nil
}

func (s *Store) Close() error { return nil }

// later orders by creation time, then by insertion order.
func (s *Store) later(a, b core.ReportRun) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return s.seq[a.ID] > s.seq[b.ID]
}

func (s *Store) sorted(less func(a, b core.ReportRun) bool, keep func(core.ReportRun) bool) []core.ReportRun {
	out := make([]core.ReportRun, 0, len(s.runs))
	for _, r := range s.runs {
		if keep == nil || keep(r) {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func truncate(runs []core.ReportRun, limit int) []core.ReportRun {
	if limit > 0 && len(runs) > limit {
		return runs[:limit]
	}
	return runs
}

func clone(r core.ReportRun) core.ReportRun {
	r.Years = append([]int(nil), r.Years...)
	if r.ExportedAt != nil {
		at := *r.ExportedAt
		r.ExportedAt = &at
	}
	if r.ExportFailedAt != nil {
		at := *r.ExportFailedAt
		r.ExportFailedAt = &at
	}
	return r
}
