// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package bootstrap brings up one routing context per profile at host
// startup.
//
// For each category, in BootstrapOrder, the Orchestrator lists descriptor
// lines from the catalog, parses them, skips the ones scoped to another
// deployment, loads each remaining definition, asks the Factory for a fresh
// routing context, resolves a strategy for it and has the Factory attach
// and start it.
//
// # Failure containment
//
// The first fatal failure in a category ends the pass for that category and
// for every category after it. It is returned as a
// *ProfileInitializationError naming the category and profile. Contexts
// started before the failure keep running; they are stopped by Shutdown
// like any other.
package bootstrap
