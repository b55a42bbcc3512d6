// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/specialistvlad/routegrid/internal/routing"
)

// ContextInfo describes a running routing context.
type ContextInfo struct {
	Name   string              `json:"name"`
	Status string              `json:"status"`
	Routes []routing.RouteInfo `json:"routes"`
}

// Router returns the health and introspection HTTP handler.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", a.healthHandler)
	r.Get("/contexts", a.contextsHandler)
	return r
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) contextsHandler(w http.ResponseWriter, _ *http.Request) {
	contexts := a.Contexts()
	infos := make([]ContextInfo, 0, len(contexts))
	for _, c := range contexts {
		infos = append(infos, ContextInfo{
			Name:   c.Name(),
			Status: c.Status().String(),
			Routes: c.Routes(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		a.logger.Error("Failed to encode contexts.", "error", err)
	}
}

// healthCheckServer initializes and runs the health check HTTP server.
func (a *App) healthCheckServer() {
	a.logger.Debug("Configuring health check server.")
	if a.config.HealthcheckPort <= 0 {
		a.logger.Debug("Health check server not started: disabled")
		return
	}

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.mu.Lock()
	a.httpServer = srv
	a.mu.Unlock()

	go func() {
		a.logger.Info("Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeHealthCheckServer(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv == nil {
		a.logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	a.logger.Info("Shutting down health check server...")
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("Health check server shut down gracefully.")
	return nil
}
