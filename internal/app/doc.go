// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package app contains the host application. It wires configuration,
// logging, the profile catalog, authorization and the bootstrap orchestrator
// together and exposes the host lifecycle (Start, Shutdown), decoupled from
// any specific entrypoint like a CLI.
package app
