package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"commissions/internal/amqp"
	"commissions/internal/config"
	applog "commissions/internal/log"
	"commissions/internal/mail"
	"commissions/internal/services"
	"commissions/internal/storage"
	"commissions/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     applog.DefaultConfig().Level,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting notify-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notify worker")
		os.Exit(1)
	}
	if !cfg.MailEnabled {
		logger.Error("MAIL_ENABLED must be true for the notify worker")
		os.Exit(1)
	}

	var store services.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository",
				applog.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		store = repo
	default:
		store = storage.NewMemoryStore()
		logger.Warn("Memory backend selected; the worker sees an empty store unless it shares a database with the server")
	}
	svc := services.NewAmortizationService(store, nil)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender, err := mail.NewFromEnv(ctx, cfg.MailFrom)
	if err != nil {
		logger.Error("Failed to initialize mail sender", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	notifyWorker := worker.NewNotifyWorker(svc, amqpClient, sender, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifyWorker.Run(gctx)
	})

	logger.Info("Notify worker running",
		applog.FieldExchange, cfg.AMQPExchange,
		applog.FieldQueue, cfg.AMQPQueue)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
