package main

import (
	"context"
	"os"
	"time"

	"pedidos/internal/amqp"
	"pedidos/internal/cli"
	applog "pedidos/internal/log"
	"pedidos/internal/services"
	gsheet "pedidos/internal/sheets/google"
	"pedidos/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting pedidos-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required by the export worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureHeader(context.Background()); err != nil {
		logger.Warn("Could not verify export sheet header", applog.FieldError, err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	processorCfg := services.DefaultExportProcessorConfig()
	processorCfg.BatchSize = cfg.ExportBatchSize
	processorCfg.PollInterval = cfg.ExportInterval
	processor := services.NewExportProcessor(repo, sheetsClient, processorCfg, logger)
	exportWorker := worker.NewExportWorker(processor, cfg.ExportBatchSize, logger)

	var consumer worker.Consumer
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on periodic sweeps", applog.FieldError, err)
		} else {
			defer client.Close()
			consumer = client
		}
	} else {
		logger.Info("AMQP disabled, relying on periodic sweeps")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := exportWorker.Run(ctx, consumer, cfg.ExportInterval); err != nil {
		logger.Error("Export worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
