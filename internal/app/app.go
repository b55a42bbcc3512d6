// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/routegrid/internal/authz"
	"github.com/specialistvlad/routegrid/internal/bootstrap"
	"github.com/specialistvlad/routegrid/internal/catalog"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/routing"
	"github.com/specialistvlad/routegrid/internal/strategy"
)

// Option customizes the collaborators of an App.
type Option func(*App)

// WithCatalog uses cat instead of the configured catalog backend.
func WithCatalog(cat catalog.Catalog) Option {
	return func(a *App) { a.catalog = cat }
}

// WithAuthorizer uses authorizer instead of loading the policy from the
// resources path.
func WithAuthorizer(authorizer authz.Authorizer) Option {
	return func(a *App) { a.authorizer = authorizer }
}

// WithComponents uses components instead of the built-in set.
func WithComponents(components *routing.Components) Option {
	return func(a *App) { a.components = components }
}

// WithResolver replaces the default strategy resolver.
func WithResolver(r strategy.Resolver) Option {
	return func(a *App) { a.bootstrapOpts = append(a.bootstrapOpts, bootstrap.WithResolver(r)) }
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger *slog.Logger
	config *Config

	catalog       catalog.Catalog
	closers       []io.Closer
	authorizer    authz.Authorizer
	hub           *routing.Hub
	components    *routing.Components
	bootstrapOpts []bootstrap.Option
	orchestrator  *bootstrap.Orchestrator

	mu         sync.Mutex
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App with its own isolated logger. Nothing is started yet.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		logger: logger,
		config: cfg,
		hub:    routing.NewHub(0),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.catalog == nil {
		cat, err := a.openCatalog(ctx)
		if err != nil {
			return nil, err
		}
		a.catalog = cat
	}

	if a.authorizer == nil {
		authorizer, err := authz.LoadFile(ctx, cfg.ResourcesPath)
		if err != nil {
			a.closeCatalog()
			return nil, fmt.Errorf("failed to initialize authorization: %w", err)
		}
		a.authorizer = authorizer
	}

	if a.components == nil {
		a.components = routing.DefaultComponents(a.hub)
	}
	logger.Debug("Routing components registered.", "schemes", a.components.Schemes())

	a.orchestrator = bootstrap.New(a.catalog, a.components, a.authorizer, a.bootstrapOpts...)
	return a, nil
}

func (a *App) openCatalog(ctx context.Context) (catalog.Catalog, error) {
	switch a.config.CatalogBackend {
	case BackendRedis:
		cat, err := catalog.ConnectRedis(ctx, a.config.RedisURL, a.config.KeyPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, cat)
		a.logger.Debug("Using redis profile catalog.", "prefix", a.config.KeyPrefix)
		return cat, nil
	default:
		a.logger.Debug("Using file system profile catalog.", "profiles_path", a.config.ProfilesPath)
		return catalog.NewFS(a.config.ProfilesPath), nil
	}
}

func (a *App) closeCatalog() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Hub returns the in-process queues behind "memory:" endpoints.
func (a *App) Hub() *routing.Hub {
	return a.hub
}

// Contexts returns the running routing contexts in start order.
func (a *App) Contexts() []*routing.Context {
	return a.orchestrator.Contexts()
}

// Start runs the bootstrap pass for the configured deployment scope and
// starts the health check server. On error, contexts started before the
// failure are left running; call Shutdown to stop them.
func (a *App) Start(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("Starting routegrid.", "scope", a.config.Scope)

	a.healthCheckServer()

	if err := a.orchestrator.Startup(ctx, a.config.Scope); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	a.logger.Info("All profiles initialized.", "contexts", len(a.Contexts()))
	return nil
}

// Shutdown stops every routing context, the health check server and the
// catalog connection.
func (a *App) Shutdown(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("Shutting down routegrid.")

	var errs []error
	if err := a.orchestrator.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeHealthCheckServer(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeCatalog(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close catalog: %w", err))
	}
	return errors.Join(errs...)
}
