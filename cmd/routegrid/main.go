// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/specialistvlad/routegrid/internal/app"
	"github.com/specialistvlad/routegrid/internal/cli"
	"github.com/specialistvlad/routegrid/internal/telemetry"
)

// shutdownTimeout bounds the whole shutdown sequence.
const shutdownTimeout = 30 * time.Second

// main is the entrypoint for the routegrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run starts the host, blocks until ctx is cancelled and shuts it down.
func run(ctx context.Context, outW io.Writer, args []string) error {
	cfg, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	shutdownTracing, err := telemetry.Setup(ctx, "routegrid", cfg.OTelEndpoint)
	if err != nil {
		return err
	}

	routegrid, err := app.NewApp(ctx, outW, cfg)
	if err != nil {
		return errors.Join(err, shutdownTracing(context.WithoutCancel(ctx)))
	}

	startErr := routegrid.Start(ctx)
	if startErr == nil {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return errors.Join(
		startErr,
		routegrid.Shutdown(shutdownCtx),
		shutdownTracing(shutdownCtx),
	)
}
