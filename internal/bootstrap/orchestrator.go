// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package bootstrap

import (
	"context"
	"fmt"

	"github.com/specialistvlad/routegrid/internal/authz"
	"github.com/specialistvlad/routegrid/internal/catalog"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/profile"
	"github.com/specialistvlad/routegrid/internal/routing"
	"github.com/specialistvlad/routegrid/internal/strategy"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator runs the per-category bootstrap pass.
type Orchestrator struct {
	catalog    catalog.Catalog
	components *routing.Components
	authorizer authz.Authorizer
	strategies *strategy.Registry
	resolver   strategy.Resolver
	tracer     trace.Tracer
	factory    *Factory
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithResolver replaces the default strategy resolver.
func WithResolver(r strategy.Resolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithStrategies replaces the strategy registry used by the default
// resolver. It has no effect together with WithResolver.
func WithStrategies(r *strategy.Registry) Option {
	return func(o *Orchestrator) { o.strategies = r }
}

// WithTracer sets the tracer of context start spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// New creates an orchestrator reading profiles from cat. Contexts share
// components; strategies see authorizer through their environment. A nil
// authorizer allows everything.
func New(cat catalog.Catalog, components *routing.Components, authorizer authz.Authorizer, opts ...Option) *Orchestrator {
	if authorizer == nil {
		authorizer = authz.AllowAll
	}
	o := &Orchestrator{
		catalog:    cat,
		components: components,
		authorizer: authorizer,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.strategies == nil {
		o.strategies = strategy.DefaultRegistry()
	}
	if o.resolver == nil {
		o.resolver = strategy.NewResolver(o.strategies, strategy.Env{Authorizer: o.authorizer})
	}
	o.factory = NewFactory(components, o.tracer)
	return o
}

// Contexts returns the started routing contexts in start order.
func (o *Orchestrator) Contexts() []*routing.Context {
	return o.factory.Started()
}

// Startup initializes every category in BootstrapOrder. A failing category
// stops the pass; later categories are not attempted.
func (o *Orchestrator) Startup(ctx context.Context, scope string) error {
	ctxlog.FromContext(ctx).Debug("Route strategies registered.", "strategies", o.strategies.Labels())
	for _, category := range profile.BootstrapOrder {
		if err := o.InitializeCategory(ctx, category, scope); err != nil {
			return err
		}
	}
	return nil
}

// InitializeCategory creates and starts a routing context for every profile
// of category accepted by scope. Lines are handled in catalog order; the
// first fatal failure is returned as a *ProfileInitializationError.
func (o *Orchestrator) InitializeCategory(ctx context.Context, category profile.Category, scope string) error {
	logger := ctxlog.FromContext(ctx).With("category", category.String(), "scope", scope)
	ctx = ctxlog.WithLogger(ctx, logger)

	lines, err := o.catalog.ListProfiles(ctx, category, scope)
	if err != nil {
		logger.Error("Failed to list profiles.", "error", err)
		return &ProfileInitializationError{Category: category, Cause: err}
	}
	if len(lines) == 0 {
		logger.Warn("No profiles found.")
		return nil
	}

	started := 0
	for _, line := range lines {
		ref, err := profile.Parse(line)
		if err != nil {
			logger.Warn("Skipping malformed profile line.", "line", line, "error", err)
			continue
		}
		if !profile.Accepts(ref, scope) {
			continue
		}
		if err := o.initializeProfile(ctx, category, ref); err != nil {
			logger.Error("Profile initialization failed.", "profile", ref.Name, "error", err)
			return &ProfileInitializationError{Category: category, Profile: ref.Name, Cause: err}
		}
		started++
	}

	logger.Info("Profiles initialized.", "started", started, "listed", len(lines))
	return nil
}

func (o *Orchestrator) initializeProfile(ctx context.Context, category profile.Category, ref profile.Ref) error {
	logger := ctxlog.FromContext(ctx).With("profile", ref.Name)

	def, err := o.catalog.LoadDefinition(ctx, category, ref.Name)
	if err != nil {
		return err
	}

	rc, err := o.factory.New(ctx, ref)
	if err != nil {
		return err
	}

	s := o.resolver(ctx, def, rc)
	if s == nil {
		logger.Warn("No route strategy found for profile.", "context", rc.Name())
	}

	if err := o.factory.AttachAndStart(ctx, rc, ref, s); err != nil {
		return err
	}
	logger.Info("Routing context started for profile.", "context", rc.Name(), "strategy", strategyName(s))
	return nil
}

func strategyName(s strategy.Strategy) string {
	if s == nil {
		return "none"
	}
	return s.Name()
}

// Shutdown stops every started context in reverse start order.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Stopping routing contexts.", "count", len(o.factory.Started()))
	if err := o.factory.StopAll(ctx); err != nil {
		logger.Warn("Some routing contexts did not stop cleanly.", "error", err)
		return fmt.Errorf("failed to stop routing contexts: %w", err)
	}
	return nil
}
