// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package catalog stores profile descriptor lines and profile definitions.
//
// A catalog answers two questions: which descriptor lines are listed for a
// category in the current deployment scope, and what the definition of a
// named profile is. Lines are returned raw; filtering by scope is left to
// the caller, which parses each line.
package catalog

import (
	"context"
	"errors"

	"github.com/specialistvlad/routegrid/internal/definition"
	"github.com/specialistvlad/routegrid/internal/profile"
)

// ErrProfileNotFound is returned when a listed profile has no definition.
var ErrProfileNotFound = errors.New("profile not found")

// Catalog is the source of profiles.
type Catalog interface {
	// ListProfiles returns the descriptor lines of a category in order. Lines
	// may carry a scope of their own; scope only selects which scope-specific
	// sections a backend adds to the result.
	ListProfiles(ctx context.Context, category profile.Category, scope string) ([]string, error)
	// LoadDefinition returns the definition of a profile, or an error
	// wrapping ErrProfileNotFound.
	LoadDefinition(ctx context.Context, category profile.Category, name string) (*definition.Definition, error)
}
