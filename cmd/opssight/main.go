// Package main is the entry point for the OpsSight alert ingestion service.
// It initializes all components and starts the HTTP server and the event
// recorder.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"opssight/internal/api"
	"opssight/internal/banner"
	"opssight/internal/config"
	"opssight/internal/dedup"
	dedupmemory "opssight/internal/dedup/memory"
	dedupredis "opssight/internal/dedup/redis"
	"opssight/internal/events"
	"opssight/internal/ingest"
	"opssight/internal/notification"
	"opssight/internal/queue"
	kafkaqueue "opssight/internal/queue/kafka"
	memoryqueue "opssight/internal/queue/memory"
	"opssight/internal/source"
	"opssight/internal/store"
	memorystor "opssight/internal/store/memory"
	postgresstor "opssight/internal/store/postgres"
	"opssight/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	banner.Print()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}

	logger := initLogger(&cfg.Logger)

	logger.Info("configuration loaded",
		"path", *configPath,
		"storage_mode", cfg.Storage.Mode,
	)

	deps, cleanup, err := initDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start event recorder in background
	go func() {
		if err := deps.recorder.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("event recorder error", "error", err)
			cancel()
		}
	}()

	// Start HTTP server
	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("OpsSight started",
		"address", cfg.Server.Address(),
		"storage_mode", cfg.Storage.Mode,
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("OpsSight stopped")
}

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server   *api.Server
	recorder *events.Recorder
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var (
		alertRepo    store.AlertRepository
		eventRepo    store.EventRepository
		cache        dedup.Cache
		producer     queue.Producer
		consumer     queue.Consumer
		cleanupFuncs []func()
	)

	if cfg.Storage.UseMemory() {
		logger.Info("initializing in-memory storage")

		alertRepo = memorystor.NewAlertRepository()
		eventRepo = memorystor.NewEventRepository()

		memCache := dedupmemory.NewCache()
		cache = memCache
		cleanupFuncs = append(cleanupFuncs, func() { _ = memCache.Close() })

		memQueue := memoryqueue.NewQueue(10000)
		producer = memQueue
		consumer = memQueue
		cleanupFuncs = append(cleanupFuncs, func() { _ = memQueue.Close() })
	} else {
		logger.Info("initializing production storage (PostgreSQL, Redis, Kafka)")

		ctx := context.Background()
		db, err := postgresstor.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)

		if err := db.RunMigrations(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("database migrations completed")

		alertRepo = postgresstor.NewAlertRepository(db)
		eventRepo = postgresstor.NewEventRepository(db)

		redisCache, err := dedupredis.NewCache(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		cache = redisCache
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisCache.Close() })

		kafkaProducer := kafkaqueue.NewProducer(&cfg.Kafka)
		producer = kafkaProducer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaProducer.Close() })

		kafkaConsumer := kafkaqueue.NewConsumer(&cfg.Kafka, logger)
		consumer = kafkaConsumer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaConsumer.Close() })
	}

	notifier := initNotifier(&cfg.Notification, logger)

	validator := webhook.NewValidator(webhook.Secrets{
		Webhook:      cfg.Security.WebhookSecret,
		GitHub:       cfg.Security.GitHubSecret,
		SlackSigning: cfg.Security.SlackSigningSecret,
	})

	publisher := events.NewPublisher(producer, logger)
	recorder := events.NewRecorder(consumer, eventRepo, logger)

	ingestService := ingest.NewService(
		validator,
		source.DefaultRegistry(),
		cache,
		cfg.Dedup.Window,
		alertRepo,
		notifier,
		publisher,
		logger,
	)

	webhookHandler := api.NewWebhookHandler(ingestService, logger)
	alertHandler := api.NewAlertHandler(alertRepo, eventRepo, publisher, logger)

	server := api.NewServer(api.ServerDeps{
		Config:         &cfg.Server,
		Logger:         logger,
		WebhookHandler: webhookHandler,
		AlertHandler:   alertHandler,
	})

	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	return &dependencies{
		server:   server,
		recorder: recorder,
	}, cleanup, nil
}

// initNotifier builds the notification fan-out from config. Channels with
// no recipients are skipped; disabled notifications use the no-op notifier.
func initNotifier(cfg *config.NotificationConfig, logger *slog.Logger) notification.Notifier {
	if !cfg.Enabled {
		logger.Info("notifications disabled")
		return notification.NopNotifier{}
	}

	var channels []notification.Channel
	recipients := make(map[string][]string)

	if len(cfg.Email.Recipients) > 0 && cfg.Email.Host != "" {
		channels = append(channels, notification.NewEmailChannel(&cfg.Email))
		recipients["email"] = cfg.Email.Recipients
	}
	if len(cfg.Slack.Channels) > 0 && cfg.Slack.BotToken != "" {
		channels = append(channels, notification.NewSlackChannel(cfg.Slack.BotToken))
		recipients["slack"] = cfg.Slack.Channels
	}
	if len(cfg.Webhook.URLs) > 0 {
		channels = append(channels, notification.NewWebhookChannel())
		recipients["webhook"] = cfg.Webhook.URLs
	}

	if len(channels) == 0 {
		logger.Info("no notification channels configured")
		return notification.NopNotifier{}
	}

	logger.Info("notification channels configured", "count", len(channels))
	directory := notification.NewStaticDirectory(recipients)
	return notification.NewFanout(channels, directory, cfg.Timeout, logger)
}

// initLogger creates and configures the application logger.
func initLogger(cfg *config.LoggerConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
