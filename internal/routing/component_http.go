// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPComponent serves plain "http://" and "https://" URLs. It can only
// produce: each message is POSTed with its headers.
type HTTPComponent struct {
	client *http.Client
}

// NewHTTPComponent creates an HTTP component. A nil client gets a default
// one with a 10s timeout.
func NewHTTPComponent(client *http.Client) *HTTPComponent {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPComponent{client: client}
}

// NewConsumer implements Component.
func (h *HTTPComponent) NewConsumer(_ context.Context, ep Endpoint) (Consumer, error) {
	return nil, fmt.Errorf("http endpoint %q: %w", ep, ErrUnsupported)
}

// NewProducer implements Component.
func (h *HTTPComponent) NewProducer(_ context.Context, ep Endpoint) (Producer, error) {
	if ep.URL.Host == "" {
		return nil, fmt.Errorf("http endpoint %q requires a host", ep)
	}
	return &httpProducer{client: h.client, url: ep.URI}, nil
}

type httpProducer struct {
	client *http.Client
	url    string
}

func (p *httpProducer) Send(ctx context.Context, msg *Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range msg.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Message-Id", msg.ID)
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, p.url)
	}
	return nil
}

func (p *httpProducer) Close() error { return nil }
