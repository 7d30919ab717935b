package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/kalambet/solace/internal/config"
	"github.com/kalambet/solace/internal/localstore"
	"github.com/kalambet/solace/internal/migration"
	"github.com/kalambet/solace/internal/userstore"
)

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// openProfiles builds the facade for the configured store mode.
func openProfiles(cfg config.Config, logger *slog.Logger) (*userstore.Facade, error) {
	mode, err := userstore.ParseMode(cfg.Store.Mode)
	if err != nil {
		return nil, err
	}
	return userstore.Open(userstore.Options{
		Mode:      mode,
		LocalPath: cfg.Store.LocalPath,
		DSN:       cfg.Store.DSN,
		DSNToken:  cfg.Store.DSNToken,
		Retry: userstore.RetryPolicy{
			Attempts: cfg.Store.RetryAttempts,
			Backoff:  cfg.Store.RetryBackoff,
		},
		RemoteURL: cfg.Store.RemoteURL,
		APIToken:  cfg.Server.APIToken,
		Logger:    logger,
	})
}

var errNoRemote = errors.New("migration needs a remote store: set store.mode to direct or http")

// openMigrator pairs the local file store with the facade's remote backend.
func openMigrator(cfg config.Config, profiles *userstore.Facade, logger *slog.Logger) (*migration.Service, error) {
	if profiles.Mode() == userstore.ModeLocal {
		return nil, errNoRemote
	}
	kv, err := localstore.Open(cfg.Store.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	return migration.New(
		userstore.NewLocal(kv),
		profiles.Backend(),
		migration.WithConcurrency(cfg.Migration.Concurrency),
		migration.WithLogger(logger),
	), nil
}

// withProfiles loads the config, opens the store and runs fn against it.
func withProfiles(ctx context.Context, fn func(ctx context.Context, cfg config.Config, profiles *userstore.Facade, logger *slog.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log.Level, diag)

	profiles, err := openProfiles(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := profiles.Close(); err != nil {
			logger.Warn("closing profile store", "error", err)
		}
	}()
	return fn(ctx, cfg, profiles, logger)
}

// redactDSN hides credentials in URL-shaped DSNs.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return dsn
	}
	q := u.Query()
	if q.Has("authToken") {
		q.Set("authToken", "xxxxx")
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
