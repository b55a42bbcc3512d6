// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package routing is the in-process message-routing runtime that hosts
// profile routes.
//
// A Context is one isolated runtime instance. Routes are added to it through
// a RoutesBuilder before it starts; Start opens every endpoint the routes name
// and launches one goroutine per route. Endpoints are addressed by URI and
// served by Components registered per URI scheme (memory, log, kafka, redis,
// socketio, http).
//
// # Lifecycle
//
//	created --Start--> started --Stop--> stopped
//	   \--Start fails--> failed
//
// A context never goes back to created; a stopped context cannot be
// restarted.
package routing
