// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package strategy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/routegrid/internal/definition"
)

// Builder creates the strategy for one profile's route block.
type Builder func(profile string, route *definition.Route, env Env) Strategy

// Registry maps route block labels to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under label. Registering a label twice panics.
func (r *Registry) Register(label string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[label]; exists {
		panic(fmt.Sprintf("strategy '%s' already registered", label))
	}
	slog.Debug("Registering route strategy.", "type", label)
	r.builders[label] = b
}

// Lookup returns the builder registered under label.
func (r *Registry) Lookup(label string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[label]
	return b, ok
}

// Labels lists the registered labels in lexical order.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	labels := make([]string, 0, len(r.builders))
	for l := range r.builders {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// DefaultRegistry returns a registry holding the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Forward, newRouteStrategy(Forward, false, false))
	r.Register(Multicast, newRouteStrategy(Multicast, true, false))
	r.Register(FilterType, newRouteStrategy(FilterType, false, true))
	return r
}
