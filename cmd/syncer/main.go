package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"vacancy_syncer/internal/api"
	"vacancy_syncer/internal/config"
	"vacancy_syncer/internal/domain"
	"vacancy_syncer/internal/lease"
	"vacancy_syncer/internal/metrics"
	"vacancy_syncer/internal/publisher"
	"vacancy_syncer/internal/scheduler"
	"vacancy_syncer/internal/service"
	"vacancy_syncer/internal/source/hh"
	"vacancy_syncer/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

// run wires the service and returns the process exit code once every
// deferred close has run.
func run(args []string) int {
	flags := flag.NewFlagSet("syncer", flag.ContinueOnError)
	configPath := flags.String("config", "config.yaml", "path to config file")
	once := flags.Bool("once", false, "run one synchronization pass and exit")
	sourceID := flags.String("source", "", "with -once, synchronize only this source")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("connected to database")

	var events service.Publisher
	if cfg.RabbitMQ.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			return 1
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	} else {
		logger.Info("rabbitmq not configured, listing events disabled")
	}

	var locker service.Locker = lease.NoopLocker{}
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			return 1
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			return 1
		}
		locker = lease.NewRedisLocker(rdb, cfg.Redis.KeyPrefix, cfg.Redis.LeaseTTL)
		logger.Info("connected to redis")
	} else {
		logger.Info("redis not configured, source leases disabled")
	}

	feed := hh.New(hh.Config{
		BaseURL:        cfg.Feed.BaseURL,
		PerPage:        cfg.Feed.PerPage,
		UserAgent:      cfg.Feed.UserAgent,
		Timeout:        cfg.Feed.Timeout,
		MaxAttempts:    cfg.Feed.Retry.MaxAttempts,
		InitialBackoff: cfg.Feed.Retry.InitialBackoff,
		MaxBackoff:     cfg.Feed.Retry.MaxBackoff,
	}, logger)

	importer := service.NewImportService(service.ImportDeps{
		Sources:   postgres.NewSourceStore(db),
		Runs:      postgres.NewRunStore(db),
		Listings:  postgres.NewListingStore(db),
		Companies: postgres.NewCompanyStore(db),
		Feed:      feed,
		TxManager: postgres.NewTransactionManager(db),
		Publisher: events,
		Locker:    locker,
		Recorder:  metrics.New(prometheus.DefaultRegisterer),
		Logger:    logger,
	}, cfg.Feed, cfg.Sync)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		return runOnce(ctx, importer, *sourceID, cfg.Sync.RunTimeout, logger)
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(importer, prometheus.DefaultGatherer, cfg.Sync.RunTimeout, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	logger.Info("starting vacancy syncer",
		"schedule", cfg.Sync.Schedule,
		"feed", cfg.Feed.BaseURL,
		"cutoff_months", cfg.Sync.CutoffMonths,
		"retention_days", cfg.Sync.RetentionDays,
	)

	sched := scheduler.NewScheduler(importer, cfg.Sync.Schedule, cfg.Sync.RunTimeout, logger)
	schedErr := sched.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}

	if schedErr != nil && !errors.Is(schedErr, context.Canceled) {
		logger.Error("scheduler error", "error", schedErr)
		return 1
	}
	return 0
}

// runOnce performs a single pass, prints the summaries and returns the exit code.
func runOnce(ctx context.Context, importer *service.ImportService, sourceID string, timeout time.Duration, logger *slog.Logger) int {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	summaries, err := importer.Run(ctx, sourceID)
	if errors.Is(err, domain.ErrNoEnabledSources) {
		logger.Info("no enabled sources", "source_id", sourceID)
		return 0
	}
	if err != nil {
		logger.Error("sync failed", "error", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summaries); err != nil {
		logger.Error("write summaries", "error", err)
	}

	for _, s := range summaries {
		if s.Status == domain.RunStatusFailed {
			return 1
		}
	}
	return 0
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
