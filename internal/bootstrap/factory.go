// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package bootstrap

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/profile"
	"github.com/specialistvlad/routegrid/internal/routing"
	"github.com/specialistvlad/routegrid/internal/strategy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ContextShutdownTimeout is the grace period of every profile context.
const ContextShutdownTimeout = 2 * time.Second

// TracerName is the instrumentation name of bootstrap spans.
const TracerName = "github.com/specialistvlad/routegrid/internal/bootstrap"

// Factory creates, starts and keeps track of profile routing contexts.
type Factory struct {
	components *routing.Components
	tracer     trace.Tracer

	mu      sync.Mutex
	started []*routing.Context
	names   map[string]int
}

// NewFactory creates a factory whose contexts share components. A nil
// tracer selects the global tracer provider.
func NewFactory(components *routing.Components, tracer trace.Tracer) *Factory {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &Factory{
		components: components,
		tracer:     tracer,
		names:      make(map[string]int),
	}
}

// New creates a routing context for ref: named after the profile without
// its 4-character suffix, with a 2 second grace period and original-message
// retention on. Derived names are not deduplicated.
func (f *Factory) New(ctx context.Context, ref profile.Ref) (*routing.Context, error) {
	name, err := profile.DerivedName(ref.Name)
	if err != nil {
		return nil, &StartError{Profile: ref.Name, Cause: err}
	}

	f.mu.Lock()
	f.names[name]++
	seen := f.names[name]
	f.mu.Unlock()
	if seen > 1 {
		ctxlog.FromContext(ctx).Warn("Routing context name is already in use.", "context", name, "profile", ref.Name, "count", seen)
	}

	rc := routing.NewContext(f.components)
	rc.SetName(name)
	rc.SetShutdownTimeout(ContextShutdownTimeout)
	rc.SetAllowUseOriginalMessage(true)
	return rc, nil
}

// AttachAndStart adds the strategy's routes to rc, if there is a strategy,
// and starts it. The context is started even without a strategy. Any
// failure is a *StartError.
func (f *Factory) AttachAndStart(ctx context.Context, rc *routing.Context, ref profile.Ref, s strategy.Strategy) (err error) {
	name := rc.Name()
	ctx, span := f.tracer.Start(ctx, "routing.context.start", trace.WithAttributes(
		attribute.String("routegrid.profile", ref.Name),
		attribute.String("routegrid.context", name),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "routing context start failed")
		}
		span.End()
	}()

	logger := ctxlog.FromContext(ctx).With("profile", ref.Name, "context", name)
	if s != nil {
		span.SetAttributes(attribute.String("routegrid.strategy", s.Name()))
		if err := rc.AddRoutes(s); err != nil {
			return &StartError{Profile: ref.Name, Context: name, Cause: err}
		}
		logger.Debug("Strategy attached.", "strategy", s.Name())
	}

	if err := rc.Start(ctxlog.WithLogger(ctx, logger)); err != nil {
		return &StartError{Profile: ref.Name, Context: name, Cause: err}
	}

	f.mu.Lock()
	f.started = append(f.started, rc)
	f.mu.Unlock()
	return nil
}

// Started returns the started contexts in start order.
func (f *Factory) Started() []*routing.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.started)
}

// StopAll stops every started context in reverse start order. Each stop is
// bounded by the context's own grace period; errors are joined.
func (f *Factory) StopAll(ctx context.Context) error {
	f.mu.Lock()
	started := f.started
	f.started = nil
	f.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
