package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pedidos/internal/core"
	applog "pedidos/internal/log"
	"pedidos/internal/sheets"
)

// ExportStore is what the processor needs from the run history backend.
type ExportStore interface {
	sheets.RunReader
	sheets.ExportQueue
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often pending runs are swept (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of runs exported per sweep (default: 10)
	BatchSize int

	// MaxRetries is how many failed appends a run gets before it is marked
	// as failed and leaves the pending list (default: 3)
	MaxRetries int
}

func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: time.Minute,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SweepResult counts the outcome of one pending sweep.
type SweepResult struct {
	Total    int
	Exported int
	Failed   int
	Skipped  int
}

// ExportProcessor pushes recorded runs to the export sheet.
type ExportProcessor struct {
	store    ExportStore
	exporter sheets.RunExporter
	config   ExportProcessorConfig
	logger   *applog.Logger
	now      func() time.Time

	attemptsMu sync.Mutex
	attempts   map[string]int

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportProcessor(store ExportStore, exporter sheets.RunExporter, config ExportProcessorConfig, logger *applog.Logger) *ExportProcessor {
	def := DefaultExportProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportProcessor{
		store:    store,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(applog.ComponentWorker),
		now:      time.Now,
		attempts: make(map[string]int),
	}
}

// ExportRun appends one run to the sheet and marks it exported. Runs that
// were already exported are left alone.
func (p *ExportProcessor) ExportRun(ctx context.Context, id string) error {
	run, err := p.store.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("get run %s: %w", id, err)
	}
	if run.Exported() {
		p.logger.DebugContext(ctx, "Run already exported", applog.FieldReportID, id)
		return nil
	}
	return p.export(ctx, run)
}

func (p *ExportProcessor) export(ctx context.Context, run core.ReportRun) error {
	ref, err := p.exporter.AppendRun(ctx, run)
	if err != nil {
		if p.recordAttempt(run.ID) {
			p.markFailed(ctx, run.ID)
		}
		return fmt.Errorf("append run %s: %w", run.ID, err)
	}
	p.clearAttempts(run.ID)

	if err := p.store.MarkExported(ctx, run.ID, p.now().UTC()); err != nil {
		// The row is already in the sheet; a later sweep would append it twice.
		p.logger.ErrorContext(ctx, "Failed to mark run as exported",
			applog.FieldReportID, run.ID, applog.FieldSheetsRef, ref, applog.FieldError, err)
		return fmt.Errorf("mark run %s exported: %w", run.ID, err)
	}

	p.logger.InfoContext(ctx, "Exported report run",
		applog.FieldReportID, run.ID,
		applog.FieldSheetsRef, ref,
		applog.FieldOrderCount, run.OrderCount,
		applog.FieldTotalCents, run.TotalSpend.Cents)
	return nil
}

// ExportPending exports up to limit pending runs, oldest first. A limit of
// zero or less uses the configured batch size.
func (p *ExportProcessor) ExportPending(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = p.config.BatchSize
	}
	pending, err := p.store.ListPendingExport(ctx, limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list pending runs: %w", err)
	}

	res := SweepResult{Total: len(pending)}
	for _, run := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if p.exhausted(run.ID) {
			res.Skipped++
			continue
		}
		if err := p.export(ctx, run); err != nil {
			res.Failed++
			p.logger.WarnContext(ctx, "Export attempt failed",
				applog.FieldReportID, run.ID, applog.FieldError, err)
			continue
		}
		res.Exported++
	}

	if res.Total > 0 {
		p.logger.InfoContext(ctx, "Pending export sweep finished",
			"total", res.Total, "exported", res.Exported, "failed", res.Failed, "skipped", res.Skipped)
	}
	return res, nil
}

// recordAttempt counts a failed append and reports whether the run has just
// used its last retry.
func (p *ExportProcessor) recordAttempt(id string) bool {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	p.attempts[id]++
	return p.attempts[id] == p.config.MaxRetries
}

// markFailed takes an exhausted run out of the pending list. If the store
// cannot record it, the in-memory count still skips the run until restart.
func (p *ExportProcessor) markFailed(ctx context.Context, id string) {
	p.logger.ErrorContext(ctx, "Run export failed permanently after max retries",
		applog.FieldReportID, id, "attempts", p.config.MaxRetries)
	if err := p.store.MarkExportFailed(ctx, id, p.now().UTC()); err != nil {
		p.logger.ErrorContext(ctx, "Failed to mark run export as failed",
			applog.FieldReportID, id, applog.FieldError, err,
			applog.FieldOperation, applog.OpExport)
		return
	}
	p.clearAttempts(id)
}

func (p *ExportProcessor) clearAttempts(id string) {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	delete(p.attempts, id)
}

func (p *ExportProcessor) exhausted(id string) bool {
	p.attemptsMu.Lock()
	defer p.attemptsMu.Unlock()
	return p.attempts[id] >= p.config.MaxRetries
}

// Start begins the sweep loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it or for ctx.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}
}

func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.ExportPending(ctx, 0); err != nil && ctx.Err() == nil {
				p.logger.ErrorContext(ctx, "Pending export sweep failed", applog.FieldError, err)
			}
		}
	}
}
