// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the profile Definition, the declarative payload a catalog
// returns for a single profile name.
//
// A Definition only describes what the profile asks for. The resolver decides
// which route-building behaviour honours it.
package definition

// Definition is the loaded configuration payload for one profile.
type Definition struct {
	// Name is the profile name as listed by the catalog, e.g. "billing.hcl".
	Name        string
	Description string
	// Route is nil when the profile declares no route block.
	Route  *Route
	Source string
}

// Route is the format-agnostic representation of a `route` block.
type Route struct {
	// Type is the block label and selects the route strategy.
	Type      string
	From      string
	To        []string
	Authorize bool
	Headers   map[string]string
	Filter    *Filter
}

// Filter keeps only messages whose header equals a given value.
type Filter struct {
	Header string `hcl:"header"`
	Equals string `hcl:"equals"`
}

// HasRoute reports whether the definition declares a route.
func (d *Definition) HasRoute() bool {
	return d != nil && d.Route != nil
}
