// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/routegrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of the ROUTEGRID_*
// environment. It returns a populated Config, a boolean indicating if the
// program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	defaults, err := app.LoadEnv()
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("routegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
routegrid - starts one message-routing context per deployment profile.

Usage:
  routegrid [options] [PROFILES_PATH]

Arguments:
  PROFILES_PATH
    Directory holding the service/ and api/ profile catalogs (fs backend).

Every option can also be set through the ROUTEGRID_* environment variable
of the same name, e.g. ROUTEGRID_LOG_LEVEL.

Options:
`)
		flagSet.PrintDefaults()
	}

	profilesFlag := flagSet.String("profiles", defaults.ProfilesPath, "Path to the profile catalog directory.")
	pFlag := flagSet.String("p", "", "Path to the profile catalog directory (shorthand).")
	catalogFlag := flagSet.String("catalog", defaults.CatalogBackend, "Profile catalog backend. Options: 'fs' or 'redis'.")
	redisURLFlag := flagSet.String("redis-url", defaults.RedisURL, "Redis URL of the redis catalog backend.")
	keyPrefixFlag := flagSet.String("key-prefix", defaults.KeyPrefix, "Key prefix of the redis catalog backend.")
	scopeFlag := flagSet.String("scope", defaults.Scope, "Deployment scope or application path, e.g. '/tenantA'.")
	resourcesFlag := flagSet.String("resources", defaults.ResourcesPath, "Directory holding authorization.yaml.")
	healthPortFlag := flagSet.Int("healthcheck-port", defaults.HealthcheckPort, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	otelFlag := flagSet.String("otel-endpoint", defaults.OTelEndpoint, "OTLP/HTTP endpoint URL for traces. Empty disables tracing.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := *profilesFlag
	if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Profiles path determined.", "path", path)

	config, err := app.NewConfig(app.Config{
		ProfilesPath:    path,
		CatalogBackend:  *catalogFlag,
		RedisURL:        *redisURLFlag,
		KeyPrefix:       *keyPrefixFlag,
		Scope:           *scopeFlag,
		ResourcesPath:   *resourcesFlag,
		LogFormat:       *logFormatFlag,
		LogLevel:        *logLevelFlag,
		HealthcheckPort: *healthPortFlag,
		OTelEndpoint:    *otelFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
