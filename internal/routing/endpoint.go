// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported is returned by components that cannot act as a consumer or
// a producer for an endpoint.
var ErrUnsupported = errors.New("operation not supported by component")

// Endpoint is a parsed endpoint URI such as "memory:orders" or
// "kafka://broker:9092/orders?group=billing".
type Endpoint struct {
	URI    string
	Scheme string
	URL    *url.URL
}

// ParseEndpoint parses an endpoint URI. The scheme is mandatory.
func ParseEndpoint(uri string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: %w", uri, err)
	}
	if u.Scheme == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: missing scheme", uri)
	}
	ep := Endpoint{URI: uri, Scheme: strings.ToLower(u.Scheme), URL: u}
	if ep.Name() == "" && ep.URL.Host == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: missing name", uri)
	}
	return ep, nil
}

// Name is the opaque part of the URI ("orders" in "memory:orders") or its
// path without the leading slash ("orders" in "kafka://b:9092/orders").
func (e Endpoint) Name() string {
	if e.URL == nil {
		return ""
	}
	if e.URL.Opaque != "" {
		return e.URL.Opaque
	}
	return strings.TrimPrefix(e.URL.Path, "/")
}

// Param returns a query parameter, or def when it is absent.
func (e Endpoint) Param(key, def string) string {
	if e.URL == nil {
		return def
	}
	if v := e.URL.Query().Get(key); v != "" {
		return v
	}
	return def
}

// String returns the original URI.
func (e Endpoint) String() string {
	return e.URI
}

// Handler receives messages from a consumer.
type Handler func(ctx context.Context, msg *Message) error

// Consumer feeds messages from an endpoint into a route.
type Consumer interface {
	// Run delivers messages to handler until ctx is cancelled or the source
	// fails. A cancelled context is not an error.
	Run(ctx context.Context, handler Handler) error
	Close() error
}

// Producer sends messages to an endpoint.
type Producer interface {
	Send(ctx context.Context, msg *Message) error
	Close() error
}

// Component creates consumers and producers for one URI scheme.
type Component interface {
	NewConsumer(ctx context.Context, ep Endpoint) (Consumer, error)
	NewProducer(ctx context.Context, ep Endpoint) (Producer, error)
}

// Components maps URI schemes to the components serving them. It is shared
// by every context of a process and safe for concurrent use.
type Components struct {
	mu  sync.RWMutex
	all map[string]Component
}

// NewComponents creates an empty component registry.
func NewComponents() *Components {
	return &Components{all: make(map[string]Component)}
}

// Register adds a component for a scheme. Registering a scheme twice is a
// programmer error and panics.
func (c *Components) Register(scheme string, component Component) {
	scheme = strings.ToLower(scheme)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.all[scheme]; exists {
		panic(fmt.Sprintf("component for scheme '%s' already registered", scheme))
	}
	slog.Debug("Registering routing component.", "scheme", scheme)
	c.all[scheme] = component
}

// Lookup returns the component registered for scheme.
func (c *Components) Lookup(scheme string) (Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	component, ok := c.all[strings.ToLower(scheme)]
	return component, ok
}

// Schemes lists the registered schemes in lexical order.
func (c *Components) Schemes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schemes := make([]string, 0, len(c.all))
	for s := range c.all {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}

func (c *Components) resolve(uri string) (Endpoint, Component, error) {
	ep, err := ParseEndpoint(uri)
	if err != nil {
		return Endpoint{}, nil, err
	}
	component, ok := c.Lookup(ep.Scheme)
	if !ok {
		return Endpoint{}, nil, fmt.Errorf("no component registered for scheme %q (endpoint %q)", ep.Scheme, uri)
	}
	return ep, component, nil
}

// DefaultComponents returns a registry with every built-in component. The
// memory component uses hub, so callers that want to reach in-process
// queues keep a reference to it.
func DefaultComponents(hub *Hub) *Components {
	c := NewComponents()
	c.Register("memory", &MemoryComponent{Hub: hub})
	c.Register("log", &LogComponent{})
	c.Register("kafka", &KafkaComponent{})
	c.Register("redis", &RedisComponent{})
	c.Register("socketio", &SocketIOComponent{})
	httpComponent := NewHTTPComponent(nil)
	c.Register("http", httpComponent)
	c.Register("https", httpComponent)
	return c
}
