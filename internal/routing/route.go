// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// ErrStop tells the route to drop the current exchange without treating it
// as a failure.
var ErrStop = errors.New("stop routing exchange")

// Processor is a single step applied to an exchange.
type Processor func(ctx context.Context, ex *Exchange) error

// Predicate decides whether an exchange continues down the route.
type Predicate func(ex *Exchange) bool

type step struct {
	name string
	fn   Processor
}

// RouteDefinition describes one route: a source endpoint, an ordered list of
// steps and the destination endpoints.
type RouteDefinition struct {
	id       string
	from     string
	steps    []step
	to       []string
	parallel bool
}

// From starts a route definition reading from uri.
func From(uri string) *RouteDefinition {
	return &RouteDefinition{from: uri}
}

// ID sets the route identifier. Routes without one get a generated ID when
// added to a context.
func (r *RouteDefinition) ID(id string) *RouteDefinition {
	r.id = id
	return r
}

// Process appends a named processing step.
func (r *RouteDefinition) Process(name string, p Processor) *RouteDefinition {
	r.steps = append(r.steps, step{name: name, fn: p})
	return r
}

// SetHeaders appends a step that sets each header on the message.
func (r *RouteDefinition) SetHeaders(headers map[string]string) *RouteDefinition {
	if len(headers) == 0 {
		return r
	}
	headers = maps.Clone(headers)
	return r.Process("set-headers", func(_ context.Context, ex *Exchange) error {
		for k, v := range headers {
			ex.Message.SetHeader(k, v)
		}
		return nil
	})
}

// Filter appends a step that drops exchanges for which pred is false.
func (r *RouteDefinition) Filter(pred Predicate) *RouteDefinition {
	return r.Process("filter", func(_ context.Context, ex *Exchange) error {
		if pred(ex) {
			return nil
		}
		return ErrStop
	})
}

// To sets the destination endpoints.
func (r *RouteDefinition) To(uris ...string) *RouteDefinition {
	r.to = append(r.to, uris...)
	return r
}

// Parallel sends each exchange to all destinations concurrently instead of
// one after another.
func (r *RouteDefinition) Parallel() *RouteDefinition {
	r.parallel = true
	return r
}

func (r *RouteDefinition) validate() error {
	if r.from == "" {
		return fmt.Errorf("route %q has no source endpoint", r.id)
	}
	if _, err := ParseEndpoint(r.from); err != nil {
		return fmt.Errorf("route %q: %w", r.id, err)
	}
	for _, uri := range r.to {
		if _, err := ParseEndpoint(uri); err != nil {
			return fmt.Errorf("route %q: %w", r.id, err)
		}
	}
	return nil
}

// RoutesBuilder adds routes to a context.
type RoutesBuilder interface {
	AddRoutesToContext(c *Context) error
}

// RoutesBuilderFunc adapts a function to RoutesBuilder.
type RoutesBuilderFunc func(c *Context) error

// AddRoutesToContext calls f(c).
func (f RoutesBuilderFunc) AddRoutesToContext(c *Context) error {
	return f(c)
}

// RouteInfo is a read-only snapshot of a route for introspection.
type RouteInfo struct {
	ID        string   `json:"id"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Parallel  bool     `json:"parallel"`
	Delivered int64    `json:"delivered"`
	Dropped   int64    `json:"dropped"`
	Failed    int64    `json:"failed"`
}
