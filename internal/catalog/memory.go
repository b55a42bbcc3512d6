// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/routegrid/internal/definition"
	"github.com/specialistvlad/routegrid/internal/profile"
)

// Memory is an in-process catalog.
type Memory struct {
	mu          sync.RWMutex
	lines       map[profile.Category][]string
	definitions map[profile.Category]map[string]*definition.Definition
}

var _ Catalog = (*Memory)(nil)

// NewMemory creates an empty in-process catalog.
func NewMemory() *Memory {
	return &Memory{
		lines:       make(map[profile.Category][]string),
		definitions: make(map[profile.Category]map[string]*definition.Definition),
	}
}

// AddLines appends descriptor lines to a category.
func (m *Memory) AddLines(category profile.Category, lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[category] = append(m.lines[category], lines...)
}

// PutDefinition stores the definition of a profile, replacing any previous
// one. def.Name is set to name.
func (m *Memory) PutDefinition(category profile.Category, name string, def *definition.Definition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.definitions[category] == nil {
		m.definitions[category] = make(map[string]*definition.Definition)
	}
	def.Name = name
	m.definitions[category][name] = def
}

// ListProfiles implements Catalog. The memory catalog has no scope sections,
// so scope is ignored.
func (m *Memory) ListProfiles(_ context.Context, category profile.Category, _ string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.lines[category]...), nil
}

// LoadDefinition implements Catalog.
func (m *Memory) LoadDefinition(_ context.Context, category profile.Category, name string) (*definition.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.definitions[category][name]
	if !ok {
		return nil, fmt.Errorf("%s profile %q: %w", category, name, ErrProfileNotFound)
	}
	return def, nil
}
