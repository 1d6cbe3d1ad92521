package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/task-tracker/config"
	"github.com/ErlanBelekov/task-tracker/internal/email"
	"github.com/ErlanBelekov/task-tracker/internal/health"
	"github.com/ErlanBelekov/task-tracker/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/task-tracker/internal/log"
	"github.com/ErlanBelekov/task-tracker/internal/metrics"
	"github.com/ErlanBelekov/task-tracker/internal/scheduler"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

// The reminder scheduler on its own, for deployments that scale the API
// horizontally and want exactly one sweeper.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: min(cfg.DBMaxConns, 4),
	})
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	mailer, err := email.NewSender(email.Config{
		Transport:    cfg.MailTransport,
		From:         cfg.MailFrom,
		ResendAPIKey: cfg.ResendAPIKey,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("email: %v", err)
	}

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "postgres", Pinger: pool},
	)

	reminder := scheduler.NewReminder(postgres.NewTaskRepository(pool), mailer, email.MustTemplates(),
		scheduler.ReminderConfig{
			Spec:       cfg.ReminderCron,
			Window:     cfg.ReminderWindow,
			BatchSize:  cfg.ReminderBatchSize,
			RunOnStart: cfg.ReminderRunOnStart,
			ClientURL:  cfg.ClientURL,
		}, logger)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	// Start blocks until ctx is cancelled and the in-flight sweep returns.
	if err := reminder.Start(ctx); err != nil {
		logger.Error("reminder scheduler", "error", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("scheduler shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
