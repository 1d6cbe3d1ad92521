package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL    string `env:"DATABASE_URL,required" validate:"required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`
	DBMaxConns     int32  `env:"DB_MAX_CONNS" envDefault:"20" validate:"min=1,max=500"`
	DBMinConns     int32  `env:"DB_MIN_CONNS" envDefault:"2"  validate:"min=0,ltefield=DBMaxConns"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET,required"  validate:"required,min=32"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET,required" validate:"required,min=32,nefield=AccessTokenSecret"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"     validate:"gt=0"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"   validate:"gtfield=AccessTokenTTL"`
	SingleUseTokenTTL  time.Duration `env:"SINGLE_USE_TOKEN_TTL" envDefault:"20m" validate:"gt=0"`

	BaseURL   string `env:"BASE_URL"   envDefault:"http://localhost:8080" validate:"required,url"`
	ClientURL string `env:"CLIENT_URL" envDefault:"http://localhost:3000" validate:"required,url"`

	MailTransport string `env:"MAIL_TRANSPORT" envDefault:"log" validate:"oneof=log resend smtp"`
	MailFrom      string `env:"MAIL_FROM"       validate:"required_unless=MailTransport log"`
	ResendAPIKey  string `env:"RESEND_API_KEY"  validate:"required_if=MailTransport resend"`
	SMTPHost      string `env:"SMTP_HOST"       validate:"required_if=MailTransport smtp"`
	SMTPPort      int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`

	ReminderEnabled    bool          `env:"REMINDER_ENABLED" envDefault:"true"`
	ReminderCron       string        `env:"REMINDER_CRON" envDefault:"0 9 * * *" validate:"required"`
	ReminderWindow     time.Duration `env:"REMINDER_WINDOW" envDefault:"24h" validate:"gt=0"`
	ReminderBatchSize  int           `env:"REMINDER_BATCH_SIZE" envDefault:"500" validate:"min=1,max=10000"`
	ReminderRunOnStart bool          `env:"REMINDER_RUN_ON_START" envDefault:"false"`

	StorageBackend    string `env:"STORAGE_BACKEND" envDefault:"local" validate:"oneof=local s3"`
	UploadDir         string `env:"UPLOAD_DIR" envDefault:"./public/uploads"`
	S3Bucket          string `env:"S3_BUCKET" validate:"required_if=StorageBackend s3"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	MaxUploadBytes    int64  `env:"MAX_UPLOAD_BYTES" envDefault:"2097152" validate:"min=1"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if _, err := cron.ParseStandard(cfg.ReminderCron); err != nil {
		return nil, fmt.Errorf("invalid config: REMINDER_CRON: %w", err)
	}

	// Emails only go to the log in local dev; anywhere else they would silently vanish.
	if cfg.Env != "local" && cfg.MailTransport == "log" {
		return nil, errors.New("invalid config: MAIL_TRANSPORT=log is only allowed with ENV=local")
	}

	return cfg, nil
}

// SlogLevel maps LOG_LEVEL onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
