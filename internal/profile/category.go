// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package profile

import (
	"fmt"
)

// Category distinguishes independent families of profiles that are
// bootstrapped in separate passes.
type Category int

const (
	// Service profiles wire internal, service-to-service routes.
	Service Category = iota
	// API profiles wire externally facing routes.
	API
)

// BootstrapOrder is the fixed order in which categories are initialized.
var BootstrapOrder = []Category{Service, API}

// String returns the lower-case name used in catalog paths and log lines.
func (c Category) String() string {
	switch c {
	case Service:
		return "service"
	case API:
		return "api"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}
