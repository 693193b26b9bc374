package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbook/internal/amqp"
	"ledgerbook/internal/backend"
	"ledgerbook/internal/cli"
	apphttp "ledgerbook/internal/http"
	"ledgerbook/internal/ledger"
	applog "ledgerbook/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

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
	defer func() {
		if err := storageBackend.Close(); err != nil {
			logger.Error("Failed to close storage backend", applog.FieldError, err)
		}
	}()

	storeOpts := []ledger.Option{
		ledger.WithSchema(cfg.Schema()),
		ledger.WithLogger(logger.Logger.With(applog.FieldComponent, applog.ComponentLedger)),
	}

	// Change events are best effort: the API keeps serving without a broker.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger changes will not be published", applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			storeOpts = append(storeOpts, ledger.WithNotifier(amqpClient))
			logger.Info("Publishing ledger changes", "exchange", cfg.AMQPExchange)
		}
	}

	store := ledger.NewStore(storageBackend.Backend, storeOpts...)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Store:      store,
		Categories: cfg.Categories,
		KindFilter: cfg.KindFilter(),
		Logger:     logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledgerd",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"schema", cfg.Schema())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
