package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/backend"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/sheets"
	gsheet "bilancio/internal/sheets/google"
	sheetsmem "bilancio/internal/sheets/memory"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := cli.SetupLogger(level, applog.ComponentWorker)
	logger.Info("Starting bilancio-worker")

	factory := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog())
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var writer sheets.ReportWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			SheetPrefix:        cfg.GoogleSheetPrefix,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			_ = res.Cleanup()
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = sheetsmem.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, reports kept in memory")
	}

	// Overrides are written by the server process, so month results are
	// never cached here.
	svc := services.NewLedgerService(res.Repository, nil, nil,
		logger.WithComponent(applog.ComponentLedger).Slog())
	exporter := worker.NewExportWorker(svc, writer)

	var wg sync.WaitGroup
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
	})

	if client, ok := res.Publisher.(*amqp.Client); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.ConsumeOverrideChanged(ctx, exporter.HandleOverrideChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL configured")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		exporter.Run(ctx, cfg.ExportInterval)
	}()

	cli.WaitForShutdown(ctx, done)
	wg.Wait()

	if err := res.Cleanup(); err != nil {
		logger.Error("Backend cleanup error", "error", err)
	}
	logger.Info("Worker shutdown complete")
}
