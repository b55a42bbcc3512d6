// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package bootstrap

import (
	"fmt"

	"github.com/specialistvlad/routegrid/internal/profile"
)

// StartError reports that a routing context could not be configured,
// attached or started.
type StartError struct {
	Profile string
	// Context is the derived context name, empty when derivation failed.
	Context string
	Cause   error
}

func (e *StartError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("failed to create routing context for profile %q: %v", e.Profile, e.Cause)
	}
	return fmt.Sprintf("failed to start routing context %q for profile %q: %v", e.Context, e.Profile, e.Cause)
}

func (e *StartError) Unwrap() error { return e.Cause }

// ProfileInitializationError is the single error a category pass fails
// with. Profile is empty when the failure happened before any profile was
// processed, such as a catalog listing error.
type ProfileInitializationError struct {
	Category profile.Category
	Profile  string
	Cause    error
}

func (e *ProfileInitializationError) Error() string {
	if e.Profile == "" {
		return fmt.Sprintf("failed to initialize %s profiles: %v", e.Category, e.Cause)
	}
	return fmt.Sprintf("failed to initialize %s profile %q: %v", e.Category, e.Profile, e.Cause)
}

func (e *ProfileInitializationError) Unwrap() error { return e.Cause }
