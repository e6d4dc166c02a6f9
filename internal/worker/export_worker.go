package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pedidos/internal/amqp"
	"pedidos/internal/core"
	applog "pedidos/internal/log"
	"pedidos/internal/services"
)

// Exporter is the part of the export processor the worker drives.
type Exporter interface {
	ExportRun(ctx context.Context, id string) error
	ExportPending(ctx context.Context, limit int) (services.SweepResult, error)
}

// Consumer delivers report.generated messages until ctx ends.
type Consumer interface {
	ConsumeReportGenerated(ctx context.Context, handler func(context.Context, *amqp.ReportGeneratedMessage) error) error
}

// ExportWorker moves recorded runs into the export sheet, driven by messages
// with a periodic sweep as backup for lost ones.
type ExportWorker struct {
	exporter  Exporter
	batchSize int
	logger    *applog.Logger
}

func NewExportWorker(exporter Exporter, batchSize int, logger *applog.Logger) *ExportWorker {
	if batchSize <= 0 {
		batchSize = services.DefaultExportProcessorConfig().BatchSize
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportWorker{
		exporter:  exporter,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleReportGenerated exports the run named by one message. A run that no
// longer exists is logged and acknowledged; other failures are returned so
// the message is requeued.
func (w *ExportWorker) HandleReportGenerated(ctx context.Context, msg *amqp.ReportGeneratedMessage) error {
	w.logger.InfoContext(ctx, "Processing report generated message",
		applog.FieldReportID, msg.RunID,
		"timestamp", msg.Timestamp)

	err := w.exporter.ExportRun(ctx, msg.RunID)
	if errors.Is(err, core.ErrRunNotFound) {
		w.logger.WarnContext(ctx, "Run not found, dropping message", applog.FieldReportID, msg.RunID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("export run: %w", err)
	}
	return nil
}

// StartupExportCheck sweeps a larger batch before consuming, to recover runs
// whose messages were lost while the worker was down.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	res, err := w.exporter.ExportPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	if res.Total == 0 {
		w.logger.InfoContext(ctx, "No pending runs found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup export completed",
		"total", res.Total,
		"exported", res.Exported,
		"errors", res.Failed)
	return nil
}

// Run performs the startup check, then consumes messages (when consumer is
// not nil) and sweeps pending runs every interval until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.StartupExportCheck(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup export check failed", applog.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			err := consumer.ConsumeReportGenerated(ctx, w.HandleReportGenerated)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consume report generated: %w", err)
			}
			return nil
		})
	}

	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := w.exporter.ExportPending(ctx, w.batchSize); err != nil && ctx.Err() == nil {
						w.logger.ErrorContext(ctx, "Periodic export sweep failed", applog.FieldError, err)
					}
				}
			}
		})
	}

	return g.Wait()
}
