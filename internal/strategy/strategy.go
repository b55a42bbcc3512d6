// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package strategy turns profile definitions into route builders.
//
// A Strategy is what a routing context is handed after creation: it adds the
// profile's routes to the context. The Resolver decides which strategy, if
// any, serves a definition. Returning nil means the profile has no route; the
// context is still started, only empty.
package strategy

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/routegrid/internal/authz"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/definition"
	"github.com/specialistvlad/routegrid/internal/routing"
)

// Strategy adds the routes of one profile to a routing context.
type Strategy interface {
	routing.RoutesBuilder
	// Name identifies the strategy in logs, e.g. "forward".
	Name() string
}

// Env carries the shared collaborators strategies may use.
type Env struct {
	Authorizer authz.Authorizer
	Logger     *slog.Logger
}

func (e Env) authorizer() authz.Authorizer {
	if e.Authorizer == nil {
		return authz.AllowAll
	}
	return e.Authorizer
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Resolver picks the strategy for a loaded definition. It sees the freshly
// created context only through its read-only handle. A nil result means "no
// strategy" and is not an error.
type Resolver func(ctx context.Context, def *definition.Definition, rc routing.Handle) Strategy

// NewResolver returns the default resolver: the builder registered under the
// definition's route label. Definitions without a route, or with a label
// nobody registered, resolve to nil. When env has no logger, strategies log
// to the logger carried by the resolving context.
func NewResolver(registry *Registry, env Env) Resolver {
	return func(ctx context.Context, def *definition.Definition, rc routing.Handle) Strategy {
		if !def.HasRoute() {
			return nil
		}
		env := env
		if env.Logger == nil {
			env.Logger = ctxlog.FromContext(ctx)
		}
		build, ok := registry.Lookup(def.Route.Type)
		if !ok {
			env.Logger.Debug("No strategy registered for route type.",
				"profile", def.Name, "context", rc.Name(), "type", def.Route.Type)
			return nil
		}
		return build(def.Name, def.Route, env)
	}
}
