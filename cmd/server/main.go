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
	"github.com/ErlanBelekov/task-tracker/internal/auth"
	"github.com/ErlanBelekov/task-tracker/internal/email"
	"github.com/ErlanBelekov/task-tracker/internal/health"
	"github.com/ErlanBelekov/task-tracker/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/task-tracker/internal/log"
	"github.com/ErlanBelekov/task-tracker/internal/metrics"
	"github.com/ErlanBelekov/task-tracker/internal/scheduler"
	"github.com/ErlanBelekov/task-tracker/internal/storage"
	httptransport "github.com/ErlanBelekov/task-tracker/internal/transport/http"
	"github.com/ErlanBelekov/task-tracker/internal/transport/http/handler"
	"github.com/ErlanBelekov/task-tracker/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool, logger); err != nil {
			stop()
			log.Fatalf("migrate: %v", err)
		}
	}

	store, uploadDir, err := newStore(ctx, cfg)
	if err != nil {
		stop()
		log.Fatalf("storage: %v", err)
	}

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
	templates := email.MustTemplates()

	tokens := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		SingleUseTTL:  cfg.SingleUseTokenTTL,
	})

	// Repositories
	userRepo := postgres.NewUserRepository(pool)
	projectRepo := postgres.NewProjectRepository(pool)
	memberRepo := postgres.NewMembershipRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	attachmentRepo := postgres.NewAttachmentRepository(pool)
	subtaskRepo := postgres.NewSubtaskRepository(pool)
	noteRepo := postgres.NewNoteRepository(pool)

	// Usecases
	authz := usecase.NewAuthorizer(memberRepo)
	authUsecase := usecase.NewAuthUsecase(userRepo, tokens, mailer, templates, usecase.AuthConfig{
		BaseURL:   cfg.BaseURL,
		ClientURL: cfg.ClientURL,
	}, logger)
	projectUsecase := usecase.NewProjectUsecase(projectRepo, memberRepo, userRepo, authz, store, logger)
	taskUsecase := usecase.NewTaskUsecase(taskRepo, attachmentRepo, memberRepo, userRepo, authz,
		mailer, templates, store, cfg.ClientURL, logger)
	attachmentUsecase := usecase.NewAttachmentUsecase(taskRepo, attachmentRepo, authz, store, cfg.MaxUploadBytes, logger)
	subtaskUsecase := usecase.NewSubtaskUsecase(subtaskRepo, taskRepo, authz)
	noteUsecase := usecase.NewNoteUsecase(noteRepo, taskRepo, authz)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "postgres", Pinger: pool},
		health.Dependency{Name: "storage", Pinger: store},
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:        logger,
		Authenticator: authUsecase,
		Handlers: httptransport.Handlers{
			Auth:        handler.NewAuthHandler(authUsecase, logger),
			Projects:    handler.NewProjectHandler(projectUsecase, logger),
			Tasks:       handler.NewTaskHandler(taskUsecase, logger),
			Attachments: handler.NewAttachmentHandler(attachmentUsecase, cfg.MaxUploadBytes, logger),
			Subtasks:    handler.NewSubtaskHandler(subtaskUsecase, logger),
			Notes:       handler.NewNoteHandler(noteUsecase, logger),
		},
		UploadDir: uploadDir,
		HSTS:      cfg.Env != "local",
	})

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	// Deployments that run cmd/scheduler separately set REMINDER_ENABLED=false here.
	reminderDone := make(chan struct{})
	if cfg.ReminderEnabled {
		reminder := scheduler.NewReminder(taskRepo, mailer, templates, scheduler.ReminderConfig{
			Spec:       cfg.ReminderCron,
			Window:     cfg.ReminderWindow,
			BatchSize:  cfg.ReminderBatchSize,
			RunOnStart: cfg.ReminderRunOnStart,
			ClientURL:  cfg.ClientURL,
		}, logger)
		go func() {
			defer close(reminderDone)
			if err := reminder.Start(ctx); err != nil {
				logger.Error("reminder scheduler", "error", err)
			}
		}()
	} else {
		close(reminderDone)
	}

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	select {
	case <-reminderDone:
	case <-shutdownCtx.Done():
		logger.Warn("reminder sweep still running at shutdown")
	}
}

type pingStore interface {
	storage.Store
	health.Pinger
}

// newStore returns the attachment store and, for the local backend, the
// directory the router should serve under /uploads.
func newStore(ctx context.Context, cfg *config.Config) (pingStore, string, error) {
	if cfg.StorageBackend == "s3" {
		s, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	}
	s, err := storage.NewLocalStore(cfg.UploadDir, cfg.BaseURL+"/uploads")
	if err != nil {
		return nil, "", err
	}
	return s, s.Dir(), nil
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
