// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
)

// LogComponent serves "log:<name>?level=<level>" endpoints. It can only
// produce: every message sent to it is written to the context's logger.
type LogComponent struct{}

// NewConsumer implements Component.
func (l *LogComponent) NewConsumer(_ context.Context, ep Endpoint) (Consumer, error) {
	return nil, fmt.Errorf("log endpoint %q: %w", ep, ErrUnsupported)
}

// NewProducer implements Component.
func (l *LogComponent) NewProducer(ctx context.Context, ep Endpoint) (Producer, error) {
	var level slog.Level
	switch strings.ToLower(ep.Param("level", "info")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("log endpoint %q: invalid level %q", ep, ep.Param("level", ""))
	}
	return &logProducer{
		logger: ctxlog.FromContext(ctx).With("endpoint", ep.Name()),
		level:  level,
	}, nil
}

type logProducer struct {
	logger *slog.Logger
	level  slog.Level
}

func (p *logProducer) Send(ctx context.Context, msg *Message) error {
	p.logger.Log(ctx, p.level, "Message received.",
		"message_id", msg.ID,
		"headers", msg.Headers,
		"body", string(msg.Body),
	)
	return nil
}

func (p *logProducer) Close() error { return nil }
