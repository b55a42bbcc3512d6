// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// socketIOConnectTimeout bounds how long opening an endpoint waits for the
// server handshake.
const socketIOConnectTimeout = 15 * time.Second

// SocketIOComponent serves
// "socketio://<host>:<port>/<path>?namespace=/&event=<event>" endpoints.
// Consumers listen for the event, producers emit it. "secure=true" switches
// to https and "insecure_skip_verify=true" disables certificate checks.
type SocketIOComponent struct{}

// NewConsumer implements Component.
func (s *SocketIOComponent) NewConsumer(ctx context.Context, ep Endpoint) (Consumer, error) {
	io, event, err := dialSocketIO(ctx, ep)
	if err != nil {
		return nil, err
	}
	return &socketIOConsumer{io: io, event: event}, nil
}

// NewProducer implements Component.
func (s *SocketIOComponent) NewProducer(ctx context.Context, ep Endpoint) (Producer, error) {
	io, event, err := dialSocketIO(ctx, ep)
	if err != nil {
		return nil, err
	}
	return &socketIOProducer{io: io, event: event}, nil
}

func dialSocketIO(ctx context.Context, ep Endpoint) (*socket.Socket, string, error) {
	event := ep.Param("event", "")
	if event == "" {
		return nil, "", fmt.Errorf("socketio endpoint %q requires an event parameter", ep)
	}
	logger := ctxlog.FromContext(ctx).With("endpoint", ep.URL.Host, "event", event)

	scheme := "http"
	if ep.Param("secure", "") == "true" {
		scheme = "https"
	}
	path := ep.URL.Path
	if path == "" || path == "/" {
		path = "/socket.io/"
	}

	opts := socket.DefaultOptions()
	opts.SetPath(path)
	if ep.Param("insecure_skip_verify", "") == "true" {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", scheme, ep.URL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(ep.Param("namespace", "/"), opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Socket.io connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- connectError(errs)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, "", fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, event, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, "", fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(socketIOConnectTimeout):
		io.Disconnect()
		return nil, "", fmt.Errorf("timed out after %s waiting for socket.io connection", socketIOConnectTimeout)
	}
}

type socketIOConsumer struct {
	io    *socket.Socket
	event string
}

func (c *socketIOConsumer) Run(ctx context.Context, handler Handler) error {
	c.io.On(types.EventName(c.event), func(data ...any) {
		var body []byte
		if len(data) > 0 {
			body = payloadBytes(data[0])
		}
		_ = handler(ctx, NewMessage(body, map[string]string{"socketio-event": c.event}))
	})
	<-ctx.Done()
	return nil
}

func (c *socketIOConsumer) Close() error {
	c.io.Disconnect()
	return nil
}

// payloadBytes turns a decoded socket.io argument into a message body.
func payloadBytes(v any) []byte {
	switch p := v.(type) {
	case nil:
		return nil
	case []byte:
		return p
	case string:
		return []byte(p)
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return []byte(fmt.Sprint(p))
		}
		return b
	}
}

type socketIOProducer struct {
	io    *socket.Socket
	event string
}

func (p *socketIOProducer) Send(_ context.Context, msg *Message) error {
	if !p.io.Connected() {
		return fmt.Errorf("socket.io client is not connected")
	}
	p.io.Emit(p.event, string(msg.Body))
	return nil
}

func (p *socketIOProducer) Close() error {
	p.io.Disconnect()
	return nil
}

// connectError turns the arguments of a connect_error event into an error.
func connectError(args []any) error {
	if len(args) == 0 {
		return errors.New("connect error")
	}
	if err, ok := args[0].(error); ok && err != nil {
		return err
	}
	return fmt.Errorf("connect error: %v", args[0])
}
