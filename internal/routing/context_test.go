// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: buf}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), buf
}

type lockedWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func receive(t *testing.T, hub *Hub, queue string) *Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	msg, err := hub.Receive(ctx, queue)
	require.NoError(t, err, "no message on queue %q", queue)
	return msg
}

func newStarted(t *testing.T, hub *Hub, build func(c *Context) error) *Context {
	t.Helper()
	ctx, _ := testCtx(t)
	c := NewContext(DefaultComponents(hub))
	c.SetName("test")
	require.NoError(t, c.AddRoutes(RoutesBuilderFunc(build)))
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c
}

func TestContext_ForwardsMessages(t *testing.T) {
	hub := NewHub(0)
	c := newStarted(t, hub, func(c *Context) error {
		return c.AddRoute(From("memory:in").SetHeaders(map[string]string{"x-tenant": "a"}).To("memory:out", "log:audit"))
	})
	assert.Equal(t, StatusStarted, c.Status())

	msg := NewMessage([]byte("hello"), nil)
	require.NoError(t, hub.Send(context.Background(), "in", msg))

	got := receive(t, hub, "out")
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, "hello", string(got.Body))
	assert.Equal(t, "a", got.Header("x-tenant"))

	require.Eventually(t, func() bool { return c.Routes()[0].Delivered == 1 }, time.Second, 10*time.Millisecond)
}

func TestContext_FilterDropsExchanges(t *testing.T) {
	hub := NewHub(0)
	c := newStarted(t, hub, func(c *Context) error {
		return c.AddRoute(From("memory:in").ID("only-invoices").
			Filter(func(ex *Exchange) bool { return ex.Message.Header("kind") == "invoice" }).
			To("memory:out"))
	})

	require.NoError(t, hub.Send(context.Background(), "in", NewMessage([]byte("skip"), map[string]string{"kind": "receipt"})))
	require.NoError(t, hub.Send(context.Background(), "in", NewMessage([]byte("keep"), map[string]string{"kind": "invoice"})))

	got := receive(t, hub, "out")
	assert.Equal(t, "keep", string(got.Body))

	require.Eventually(t, func() bool {
		r := c.Routes()[0]
		return r.Dropped == 1 && r.Delivered == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "only-invoices", c.Routes()[0].ID)
}

func TestContext_RetainsOriginalMessage(t *testing.T) {
	hub := NewHub(0)
	originals := make(chan *Message, 1)

	ctx, _ := testCtx(t)
	c := NewContext(DefaultComponents(hub))
	c.SetName("retain")
	c.SetAllowUseOriginalMessage(true)
	require.NoError(t, c.AddRoute(From("memory:in").
		Process("mutate", func(_ context.Context, ex *Exchange) error {
			ex.Message.Body = []byte("changed")
			originals <- ex.Original
			return nil
		}).
		To("memory:out")))
	require.NoError(t, c.Start(ctx))
	defer c.Stop(context.Background())

	require.NoError(t, hub.Send(context.Background(), "in", NewMessage([]byte("original"), nil)))

	assert.Equal(t, "changed", string(receive(t, hub, "out").Body))
	orig := <-originals
	require.NotNil(t, orig)
	assert.Equal(t, "original", string(orig.Body))
}

func TestContext_NoOriginalWhenDisabled(t *testing.T) {
	hub := NewHub(0)
	originals := make(chan *Message, 1)
	newStarted(t, hub, func(c *Context) error {
		return c.AddRoute(From("memory:in").Process("capture", func(_ context.Context, ex *Exchange) error {
			originals <- ex.Original
			return nil
		}))
	})

	require.NoError(t, hub.Send(context.Background(), "in", NewMessage([]byte("x"), nil)))
	select {
	case orig := <-originals:
		assert.Nil(t, orig)
	case <-time.After(2 * time.Second):
		t.Fatal("route did not process the message")
	}
}

func TestContext_ParallelMulticast(t *testing.T) {
	hub := NewHub(0)
	newStarted(t, hub, func(c *Context) error {
		return c.AddRoute(From("memory:in").To("memory:a", "memory:b", "memory:c").Parallel())
	})

	msg := NewMessage([]byte("fan-out"), nil)
	require.NoError(t, hub.Send(context.Background(), "in", msg))

	for _, q := range []string{"a", "b", "c"} {
		got := receive(t, hub, q)
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, "fan-out", string(got.Body))
	}
}

func TestContext_FanOutAcrossContextsDoesNotShareMessages(t *testing.T) {
	hub := NewHub(0)
	newStarted(t, hub, func(c *Context) error {
		return c.AddRoute(From("memory:in").To("memory:x", "memory:y"))
	})
	newStarted(t, hub, func(c *Context) error {
		return c.AddRoute(From("memory:x").SetHeaders(map[string]string{"owner": "a"}).To("memory:out-a"))
	})
	newStarted(t, hub, func(c *Context) error {
		return c.AddRoute(From("memory:y").SetHeaders(map[string]string{"owner": "b"}).To("memory:out-b"))
	})

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, hub.Send(context.Background(), "in", NewMessage([]byte("m"), nil)))
	}

	for i := 0; i < n; i++ {
		a := receive(t, hub, "out-a")
		b := receive(t, hub, "out-b")
		assert.NotSame(t, a, b)
		assert.Equal(t, "a", a.Header("owner"))
		assert.Equal(t, "b", b.Header("owner"))
	}
}

func TestHub_SendEnqueuesACopy(t *testing.T) {
	hub := NewHub(1)
	msg := NewMessage([]byte("body"), map[string]string{"k": "v"})
	require.NoError(t, hub.Send(context.Background(), "q", msg))
	msg.Headers["k"] = "changed"

	got := receive(t, hub, "q")
	assert.NotSame(t, msg, got)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, "v", got.Header("k"))
}

func TestContext_HTTPProducer(t *testing.T) {
	var hits atomic.Int32
	var gotHeader atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotHeader.Store(r.Header.Get("X-Tenant"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	hub := NewHub(0)
	newStarted(t, hub, func(c *Context) error {
		return c.AddRoute(From("memory:in").SetHeaders(map[string]string{"X-Tenant": "a"}).To(srv.URL + "/hook"))
	})

	require.NoError(t, hub.Send(context.Background(), "in", NewMessage([]byte("{}"), nil)))
	require.Eventually(t, func() bool { return hits.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "a", gotHeader.Load())
}

func TestContext_StartWithoutRoutes(t *testing.T) {
	ctx, _ := testCtx(t)
	c := NewContext(DefaultComponents(NewHub(0)))
	c.SetName("empty")

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, StatusStarted, c.Status())
	assert.Empty(t, c.Routes())
	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, StatusStopped, c.Status())
}

func TestContext_StartRequiresName(t *testing.T) {
	ctx, _ := testCtx(t)
	c := NewContext(DefaultComponents(NewHub(0)))
	require.Error(t, c.Start(ctx))
	assert.Equal(t, StatusFailed, c.Status())
}

func TestContext_StartTwiceFails(t *testing.T) {
	ctx, _ := testCtx(t)
	c := NewContext(DefaultComponents(NewHub(0)))
	c.SetName("twice")
	require.NoError(t, c.Start(ctx))
	defer c.Stop(ctx)

	err := c.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "it is started")

	err = c.AddRoute(From("memory:in"))
	require.Error(t, err)
}

type closeTracker struct {
	closed atomic.Int32
}

func (c *closeTracker) NewConsumer(context.Context, Endpoint) (Consumer, error) {
	return nil, errors.New("boom")
}

func (c *closeTracker) NewProducer(context.Context, Endpoint) (Producer, error) {
	return &trackedProducer{tracker: c}, nil
}

type trackedProducer struct{ tracker *closeTracker }

func (p *trackedProducer) Send(context.Context, *Message) error { return nil }
func (p *trackedProducer) Close() error {
	p.tracker.closed.Add(1)
	return nil
}

func TestContext_StartFailureClosesOpenedEndpoints(t *testing.T) {
	ctx, _ := testCtx(t)
	tracker := &closeTracker{}
	components := DefaultComponents(NewHub(0))
	components.Register("broken", tracker)

	c := NewContext(components)
	c.SetName("broken")
	require.NoError(t, c.AddRoute(From("memory:ok").To("broken:a")))
	require.NoError(t, c.AddRoute(From("broken:src").To("broken:b", "broken:c")))

	err := c.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, StatusFailed, c.Status())
	// One producer from the first route and two from the failed second route.
	assert.Equal(t, int32(3), tracker.closed.Load())
}

func TestContext_UnknownSchemeFailsStart(t *testing.T) {
	ctx, _ := testCtx(t)
	c := NewContext(DefaultComponents(NewHub(0)))
	c.SetName("unknown")
	require.NoError(t, c.AddRoute(From("carrier-pigeon:coop").To("memory:out")))

	err := c.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no component registered for scheme "carrier-pigeon"`)
}

func TestContext_LogEndpointCannotConsume(t *testing.T) {
	ctx, _ := testCtx(t)
	c := NewContext(DefaultComponents(NewHub(0)))
	c.SetName("log-source")
	require.NoError(t, c.AddRoute(From("log:nope").To("memory:out")))

	err := c.Start(ctx)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestContext_AddRouteValidation(t *testing.T) {
	c := NewContext(DefaultComponents(NewHub(0)))
	c.SetName("v")

	require.Error(t, c.AddRoute(nil))
	require.Error(t, c.AddRoute(From("")))
	require.Error(t, c.AddRoute(From("memory:in").To("no-scheme")))
	require.NoError(t, c.AddRoute(From("memory:in").ID("r")))
	require.Error(t, c.AddRoute(From("memory:in").ID("r")), "duplicate IDs are rejected")
	require.NoError(t, c.AddRoute(From("memory:other")))

	ids := []string{c.Routes()[0].ID, c.Routes()[1].ID}
	assert.Equal(t, []string{"r", "v-route2"}, ids)
}

type blockingComponent struct{}

func (blockingComponent) NewConsumer(context.Context, Endpoint) (Consumer, error) {
	return blockingConsumer{}, nil
}
func (blockingComponent) NewProducer(context.Context, Endpoint) (Producer, error) {
	return nil, ErrUnsupported
}

type blockingConsumer struct{}

// Run ignores cancellation, simulating a source that will not let go.
func (blockingConsumer) Run(context.Context, Handler) error {
	select {}
}
func (blockingConsumer) Close() error { return nil }

func TestContext_StopHonoursShutdownTimeout(t *testing.T) {
	ctx, _ := testCtx(t)
	components := NewComponents()
	components.Register("stuck", blockingComponent{})

	c := NewContext(components)
	c.SetName("stuck")
	c.SetShutdownTimeout(50 * time.Millisecond)
	require.NoError(t, c.AddRoute(From("stuck:src")))
	require.NoError(t, c.Start(ctx))

	start := time.Now()
	err := c.Stop(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not stop within 50ms")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusStopped, c.Status())

	require.NoError(t, c.Stop(ctx), "stopping twice is a no-op")
}

func TestComponents_DuplicateRegistrationPanics(t *testing.T) {
	c := NewComponents()
	c.Register("memory", &MemoryComponent{Hub: NewHub(1)})
	assert.Panics(t, func() { c.Register("MEMORY", &MemoryComponent{Hub: NewHub(1)}) })
	assert.Equal(t, []string{"memory"}, c.Schemes())
}

func TestDefaultComponents_Schemes(t *testing.T) {
	assert.Equal(t,
		[]string{"http", "https", "kafka", "log", "memory", "redis", "socketio"},
		DefaultComponents(NewHub(0)).Schemes())
}
