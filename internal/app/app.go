// Package app wires configuration into the shared process resources used
// by the binaries under cmd/.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/alert"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/esp"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// SetupLogging applies the logging section to the default logger.
func SetupLogging(cfg config.LoggingConfig) {
	logger.SetOutput(os.Stderr, cfg.Console)
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.RedactPII)
}

// OpenDB connects to Postgres and verifies the connection.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("connected to database", "component", "app")
	return db, nil
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("connected to redis", "component", "app", "addr", opts.Addr)
	return client, nil
}

// NewMailer builds the configured mail provider.
func NewMailer(ctx context.Context, cfg config.DeliveryConfig) (esp.Mailer, error) {
	switch cfg.Provider {
	case "ses":
		m, err := esp.NewSESMailer(ctx, esp.SESConfig{
			Region:           cfg.SES.Region,
			AccessKey:        cfg.SES.AccessKey,
			SecretKey:        cfg.SES.SecretKey,
			ConfigurationSet: cfg.SES.ConfigurationSet,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case "gmail":
		m, err := esp.NewGmailMailer(esp.GmailConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// NewAlerter returns an SMTP alerter when alerts are enabled and a log-only
// alerter otherwise.
func NewAlerter(cfg config.AlertsConfig) alert.Alerter {
	if !cfg.Enabled {
		return alert.LogAlerter{}
	}
	return alert.NewSMTPAlerter(alert.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		To:       cfg.To,
	})
}
