package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"pedidos/internal/core"
)

func run(id string, created time.Time) core.ReportRun {
	return core.ReportRun{ID: id, CreatedAt: created, Years: []int{2024}, TotalSpend: core.Money{Cents: 100}}
}

func TestStoreSaveGetAndIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	r := run("a", time.Now())
	if err := s.SaveRun(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	r.Years[0] = 1999

	got, err := s.GetRun(ctx, "a")
	if err != nil || got.Years[0] != 2024 {
		t.Fatalf("stored run must not alias caller slices: %+v err=%v", got, err)
	}
	got.Years[0] = 1999
	again, _ := s.GetRun(ctx, "a")
	if again.Years[0] != 2024 {
		t.Fatalf("returned run must not alias store state")
	}

	if _, err := s.GetRun(ctx, "zzz"); !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := s.SaveRun(ctx, core.ReportRun{}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestStoreOrderingAndExport(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = s.SaveRun(ctx, run("old", base))
	_ = s.SaveRun(ctx, run("new", base.Add(time.Hour)))
	_ = s.SaveRun(ctx, run("tie", base.Add(time.Hour)))

	recent, _ := s.ListRecentRuns(ctx, 2)
	if len(recent) != 2 || recent[0].ID != "tie" || recent[1].ID != "new" {
		t.Fatalf("unexpected recent: %+v", recent)
	}

	if err := s.MarkExported(ctx, "old", base); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := s.MarkExported(ctx, "nope", base); !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	pending, _ := s.ListPendingExport(ctx, 0)
	if len(pending) != 2 || pending[0].ID != "new" || pending[1].ID != "tie" {
		t.Fatalf("unexpected pending: %+v", pending)
	}
	if err := s.MarkExportFailed(ctx, "new", base); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	pending, _ = s.ListPendingExport(ctx, 0)
	if len(pending) != 1 || pending[0].ID != "tie" {
		t.Fatalf("failed run should leave pending: %+v", pending)
	}
	if err := s.MarkExportFailed(ctx, "nope", base); !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
