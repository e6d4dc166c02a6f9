package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pedidos/internal/amqp"
	"pedidos/internal/core"
	applog "pedidos/internal/log"
	"pedidos/internal/services"
	"pedidos/internal/sheets/memory"
)

type fakeExporter struct {
	mu      sync.Mutex
	runErr  error
	exports []string
	sweeps  []int
	pending int
}

func (f *fakeExporter) ExportRun(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return f.runErr
	}
	f.exports = append(f.exports, id)
	return nil
}

func (f *fakeExporter) ExportPending(_ context.Context, limit int) (services.SweepResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps = append(f.sweeps, limit)
	res := services.SweepResult{Total: f.pending, Exported: f.pending}
	f.pending = 0
	return res, nil
}

func (f *fakeExporter) sweepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sweeps)
}

type fakeConsumer struct {
	messages []*amqp.ReportGeneratedMessage
	handled  chan error
}

func (c *fakeConsumer) ConsumeReportGenerated(ctx context.Context, handler func(context.Context, *amqp.ReportGeneratedMessage) error) error {
	for _, m := range c.messages {
		c.handled <- handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHandleReportGenerated(t *testing.T) {
	exp := &fakeExporter{}
	w := NewExportWorker(exp, 10, applog.Discard())

	if err := w.HandleReportGenerated(context.Background(), amqp.NewReportGeneratedMessage("run-1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exp.exports) != 1 || exp.exports[0] != "run-1" {
		t.Fatalf("expected run-1 exported, got %v", exp.exports)
	}
}

func TestHandleReportGeneratedMissingRunIsAcked(t *testing.T) {
	exp := &fakeExporter{runErr: core.ErrRunNotFound}
	w := NewExportWorker(exp, 10, applog.Discard())

	if err := w.HandleReportGenerated(context.Background(), amqp.NewReportGeneratedMessage("gone")); err != nil {
		t.Fatalf("missing run should not requeue, got %v", err)
	}
}

func TestHandleReportGeneratedFailureRequeues(t *testing.T) {
	boom := errors.New("sheets unavailable")
	w := NewExportWorker(&fakeExporter{runErr: boom}, 10, applog.Discard())

	err := w.HandleReportGenerated(context.Background(), amqp.NewReportGeneratedMessage("run-1"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestStartupExportCheckUsesLargerBatch(t *testing.T) {
	exp := &fakeExporter{pending: 3}
	w := NewExportWorker(exp, 4, applog.Discard())

	if err := w.StartupExportCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exp.sweeps) != 1 || exp.sweeps[0] != 20 {
		t.Fatalf("expected one sweep with limit 20, got %v", exp.sweeps)
	}
}

func TestRunConsumesAndSweeps(t *testing.T) {
	exp := &fakeExporter{}
	w := NewExportWorker(exp, 10, applog.Discard())
	consumer := &fakeConsumer{
		messages: []*amqp.ReportGeneratedMessage{amqp.NewReportGeneratedMessage("run-1")},
		handled:  make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer, 5*time.Millisecond) }()

	select {
	case err := <-consumer.handled:
		if err != nil {
			t.Fatalf("handler error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message was not handled")
	}

	deadline := time.Now().Add(2 * time.Second)
	for exp.sweepCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run should stop cleanly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if exp.sweepCount() < 2 {
		t.Fatalf("expected startup plus periodic sweeps, got %d", exp.sweepCount())
	}
}

func TestRunWithProcessorAndMemoryStore(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	run := core.ReportRun{ID: "run-1", FileName: "pedidos.csv", CreatedAt: time.Now()}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	sheet := &recordingSheet{}
	proc := services.NewExportProcessor(store, sheet, services.DefaultExportProcessorConfig(), applog.Discard())
	w := NewExportWorker(proc, 10, applog.Discard())

	if err := w.StartupExportCheck(ctx); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleReportGenerated(ctx, amqp.NewReportGeneratedMessage("run-1")); err != nil {
		t.Fatal(err)
	}
	if len(sheet.ids) != 1 {
		t.Fatalf("run should be appended exactly once, got %v", sheet.ids)
	}
}

type recordingSheet struct{ ids []string }

func (r *recordingSheet) AppendRun(_ context.Context, run core.ReportRun) (string, error) {
	r.ids = append(r.ids, run.ID)
	return "Relatorios!A2", nil
}
