// Package app wires configuration into the services the CalmTrack binaries
// share.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/calmtrack/internal/cache"
	"github.com/claude/calmtrack/internal/config"
	"github.com/claude/calmtrack/internal/demo"
	"github.com/claude/calmtrack/internal/googlefit"
	"github.com/claude/calmtrack/internal/insights"
	"github.com/claude/calmtrack/internal/metrics"
	"github.com/claude/calmtrack/internal/server"
	"github.com/claude/calmtrack/internal/storage"
	"github.com/claude/calmtrack/internal/tokens"
)

// Compile-time checks: the concrete backends satisfy the service interfaces.
var (
	_ insights.Store     = (*storage.DB)(nil)
	_ insights.Cache     = (*cache.Cache)(nil)
	_ insights.Connector = (*googlefit.Connector)(nil)
	_ server.GoogleFit   = (*googlefit.Connector)(nil)
	_ server.Stats       = (*storage.DB)(nil)
)

// App holds the long-lived dependencies. DB and Cache are nil when their
// config sections are absent.
type App struct {
	Config    *config.Config
	DB        *storage.DB
	Tokens    *tokens.Store
	Cache     *cache.Cache
	Metrics   *metrics.Recorder
	Connector *googlefit.Connector
	Insights  *insights.Service

	log *slog.Logger
}

// Build opens every configured backend. Callers must Close the result.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Metrics: metrics.New(), log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Database.Enabled() {
		a.DB, err = storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		log.Info("database connected")
	} else {
		log.Info("database disabled, analyses will not be persisted")
	}

	if cfg.Redis.Enabled() {
		a.Cache, err = cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			return nil, fmt.Errorf("connecting redis: %w", err)
		}
		log.Info("redis cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	a.Tokens, err = tokens.Open(cfg.Tokens.StateDir)
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}

	var fallback *demo.Generator
	if cfg.GoogleFit.Fallback() {
		fallback = demo.NewRandom()
	}
	a.Connector = googlefit.NewConnector(googlefit.ConnectorOptions{
		OAuth:             googlefit.OAuthConfig(cfg.GoogleFit.ClientID, cfg.GoogleFit.ClientSecret, cfg.GoogleFit.RedirectURL),
		Store:             a.Tokens,
		Logger:            log,
		RequestsPerSecond: cfg.GoogleFit.RequestsPerSecond,
		Fallback:          fallback,
		Observer:          a.Metrics,
	})

	opts := insights.Options{
		Connector: a.Connector,
		Marker:    a.Tokens,
		Observer:  a.Metrics,
		Location:  cfg.Location(),
		Logger:    log,
	}
	// Typed nils must not reach the interface fields.
	if a.DB != nil {
		opts.Store = a.DB
	}
	if a.Cache != nil {
		opts.Cache = a.Cache
	}
	a.Insights = insights.New(opts)

	return a, nil
}

// Close releases every opened backend.
func (a *App) Close() {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Tokens != nil {
		errs = append(errs, a.Tokens.Close())
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("closing backends", "error", err)
	}
}
