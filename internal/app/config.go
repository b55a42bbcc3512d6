// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Catalog backends.
const (
	BackendFS    = "fs"
	BackendRedis = "redis"
)

// Config holds all the necessary configuration for an App instance to run.
// Environment variables provide the defaults; command-line flags override
// them.
type Config struct {
	ProfilesPath   string `env:"ROUTEGRID_PROFILES_PATH" envDefault:"profiles"`
	CatalogBackend string `env:"ROUTEGRID_CATALOG" envDefault:"fs"`
	RedisURL       string `env:"ROUTEGRID_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	KeyPrefix      string `env:"ROUTEGRID_KEY_PREFIX" envDefault:"routegrid"`

	// Scope is the deployment scope, usually the application path the host
	// is deployed under. A leading "/" is dropped.
	Scope         string `env:"ROUTEGRID_SCOPE"`
	ResourcesPath string `env:"ROUTEGRID_RESOURCES_PATH" envDefault:"resources"`

	LogFormat       string `env:"ROUTEGRID_LOG_FORMAT" envDefault:"json"`
	LogLevel        string `env:"ROUTEGRID_LOG_LEVEL" envDefault:"info"`
	HealthcheckPort int    `env:"ROUTEGRID_HEALTHCHECK_PORT" envDefault:"0"`
	OTelEndpoint    string `env:"ROUTEGRID_OTEL_ENDPOINT"`
}

// LoadEnv reads a Config from the environment.
func LoadEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// NewConfig validates and normalizes cfg.
func NewConfig(cfg Config) (*Config, error) {
	cfg.CatalogBackend = strings.ToLower(strings.TrimSpace(cfg.CatalogBackend))
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Scope = DeploymentScope(cfg.Scope)

	var errs []error
	switch cfg.CatalogBackend {
	case BackendFS:
		if cfg.ProfilesPath == "" {
			errs = append(errs, errors.New("profiles path is required for the fs catalog"))
		}
	case BackendRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("redis url is required for the redis catalog"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid catalog backend %q: must be 'fs' or 'redis'", cfg.CatalogBackend))
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, errors.New("invalid log-format: must be 'text' or 'json'"))
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'"))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DeploymentScope turns an application path such as "/tenantA" into the
// scope profiles are matched against.
func DeploymentScope(appPath string) string {
	appPath = strings.TrimSpace(appPath)
	if strings.HasPrefix(appPath, "/") {
		return appPath[1:]
	}
	return appPath
}
