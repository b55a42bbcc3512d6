// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	testCases := []struct {
		name       string
		uri        string
		wantScheme string
		wantName   string
		wantErr    bool
	}{
		{name: "opaque", uri: "memory:orders", wantScheme: "memory", wantName: "orders"},
		{name: "scheme is lowered", uri: "MEMORY:orders", wantScheme: "memory", wantName: "orders"},
		{name: "hierarchical", uri: "kafka://broker:9092/orders?group=billing", wantScheme: "kafka", wantName: "orders"},
		{name: "host only", uri: "redis://localhost:6379?channel=x", wantScheme: "redis", wantName: ""},
		{name: "surrounding spaces", uri: "  log:audit ", wantScheme: "log", wantName: "audit"},
		{name: "missing scheme", uri: "orders", wantErr: true},
		{name: "missing name", uri: "memory:", wantErr: true},
		{name: "empty", uri: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ep, err := ParseEndpoint(tc.uri)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantScheme, ep.Scheme)
			assert.Equal(t, tc.wantName, ep.Name())
			assert.Equal(t, tc.uri, ep.String())
		})
	}
}

func TestEndpoint_Param(t *testing.T) {
	ep, err := ParseEndpoint("kafka://b:9092/orders?group=billing&brokers=")
	require.NoError(t, err)
	assert.Equal(t, "billing", ep.Param("group", "x"))
	assert.Equal(t, "fallback", ep.Param("brokers", "fallback"), "empty values fall back")
	assert.Equal(t, "d", ep.Param("missing", "d"))
	assert.Equal(t, "d", Endpoint{}.Param("any", "d"))
}

func TestKafkaBrokers(t *testing.T) {
	ep, err := ParseEndpoint("kafka://a:9092/orders?brokers=b:9092, c:9092,")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, kafkaBrokers(ep))
}

func TestRedisOptions(t *testing.T) {
	ep, err := ParseEndpoint("redis://localhost:6379/2?channel=orders")
	require.NoError(t, err)
	opts, channel, err := redisOptions(ep)
	require.NoError(t, err)
	assert.Equal(t, "orders", channel)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	ep, err = ParseEndpoint("redis://localhost:6379")
	require.NoError(t, err)
	_, _, err = redisOptions(ep)
	require.Error(t, err, "channel is required")
}

func TestHub_QueueIsPointToPoint(t *testing.T) {
	hub := NewHub(2)
	ctx := context.Background()

	require.NoError(t, hub.Send(ctx, "q", NewMessage([]byte("1"), nil)))
	require.NoError(t, hub.Send(ctx, "q", NewMessage([]byte("2"), nil)))
	assert.Equal(t, 2, hub.Len("q"))
	assert.Equal(t, 0, hub.Len("other"))

	full, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, hub.Send(full, "q", NewMessage(nil, nil)), context.DeadlineExceeded)

	first, err := hub.Receive(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, "1", string(first.Body))
	assert.Equal(t, 1, hub.Len("q"))
}

func TestMessage_CloneIsDeep(t *testing.T) {
	msg := NewMessage([]byte("body"), map[string]string{"a": "1"})
	require.NotEmpty(t, msg.ID)

	clone := msg.Clone()
	clone.Body[0] = 'B'
	clone.SetHeader("a", "2")

	assert.Equal(t, msg.ID, clone.ID)
	assert.Equal(t, "body", string(msg.Body))
	assert.Equal(t, "1", msg.Header("a"))

	var empty Message
	assert.Equal(t, "", empty.Header("x"))
	empty.SetHeader("x", "y")
	assert.Equal(t, "y", empty.Header("x"))
}

func TestConnectError(t *testing.T) {
	cause := errors.New("refused")
	assert.Same(t, cause, connectError([]any{cause}))
	assert.EqualError(t, connectError([]any{"bad namespace"}), "connect error: bad namespace")
	assert.EqualError(t, connectError(nil), "connect error")
}
