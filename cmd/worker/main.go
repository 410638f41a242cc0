// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/cartsync/internal/adapters/db"
	"github.com/ammerola/cartsync/internal/pkg/config"
	"github.com/ammerola/cartsync/internal/pkg/logger"
	"github.com/ammerola/cartsync/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("info", "json")

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	ctx := context.Background()
	database, err := initDatabase(ctx, cfg, slogger.Logger)
	if err != nil {
		slogger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:              cfg.Asynq.Concurrency,
			Queues:                   cfg.Asynq.Queues,
			StrictPriority:           cfg.Asynq.StrictPriority,
			ErrorHandler:             asynq.ErrorHandlerFunc(handleError),
			RetryDelayFunc:           exponentialBackoff,
			ShutdownTimeout:          cfg.Asynq.ShutdownTimeout,
			HealthCheckFunc:          healthCheck,
			HealthCheckInterval:      cfg.Asynq.HealthCheckInterval,
			DelayedTaskCheckInterval: cfg.Asynq.DelayedTaskCheckTime,
			Logger:                   newAsynqLogger(slogger.Logger),
		},
	)

	mux := asynq.NewServeMux()

	notificationProcessor := workers.NewNotificationProcessor(slogger.Logger)
	mux.HandleFunc(workers.TypeCartNotify, notificationProcessor.Deliver)

	cleanupProcessor := workers.NewCleanupProcessor(database, slogger.Logger)
	mux.HandleFunc(workers.TypeCleanupExpiredTokens, cleanupProcessor.CleanupExpiredTokens)

	catalogProcessor := workers.NewCatalogProcessor(db.NewCatalog(database, slogger.Logger), slogger.Logger)
	mux.HandleFunc(workers.TypeCatalogImport, catalogProcessor.ImportCatalog)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(slogger.Logger),
	})
	cronSpec := fmt.Sprintf("@every %s", cfg.Asynq.CleanupInterval)
	entryID, err := scheduler.Register(cronSpec, asynq.NewTask(workers.TypeCleanupExpiredTokens, nil), asynq.Queue("low"))
	if err != nil {
		slogger.Error("failed to schedule token cleanup", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slogger.Info("token cleanup scheduled",
		slog.String("entry_id", entryID),
		slog.String("cron", cronSpec))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(mux); err != nil {
			slogger.Error("failed to run worker server", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	if err := scheduler.Start(); err != nil {
		slogger.Error("failed to start scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues))

	sig := <-shutdown
	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.Database, error) {
	dbConfig := &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     4,
		MinConnections:     1,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}

	return db.NewDatabase(ctx, dbConfig, logger)
}

func handleError(ctx context.Context, task *asynq.Task, err error) {
	attrs := []any{
		slog.String("type", task.Type()),
		slog.String("error", err.Error()),
	}
	if errors.Is(err, asynq.SkipRetry) {
		slog.WarnContext(ctx, "task dropped", append(attrs, slog.String("payload", string(task.Payload())))...)
		return
	}
	slog.ErrorContext(ctx, "task processing failed", attrs...)
}

func exponentialBackoff(n int, e error, t *asynq.Task) time.Duration {
	baseDelay := time.Second
	maxDelay := 10 * time.Minute
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func healthCheck(err error) {
	if err != nil {
		slog.Error("worker health check failed", slog.String("error", err.Error()))
	}
}

// asynqLogger adapts slog for Asynq
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
	}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
