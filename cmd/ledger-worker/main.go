package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/backend"
	"ledgerbook/internal/cli"
	"ledgerbook/internal/ledger"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/sheets"
	gsheet "ledgerbook/internal/sheets/google"
	"ledgerbook/internal/sheets/memory"
	"ledgerbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting ledger-worker", applog.FieldOperation, applog.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	storageBackend, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create storage backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer storageBackend.Close()

	// The worker only reads; it never publishes, so no notifier.
	store := ledger.NewStore(storageBackend.Backend,
		ledger.WithSchema(cfg.Schema()),
		ledger.WithLogger(logger.Logger.With(applog.FieldComponent, applog.ComponentLedger)))

	var mirror sheets.LedgerMirror
	if cfg.MirrorEnabled() {
		client, err := gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetPrefix:     cfg.GoogleSheetPrefix,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memory.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring into memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewMirrorWorker(store, mirror, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.StartupSync(gctx, cfg.MirrorAccounts)
	})
	g.Go(func() error {
		return amqpClient.Consume(gctx, w.HandleChange)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
