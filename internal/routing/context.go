// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
)

// DefaultShutdownTimeout is the grace period of a context that was not
// configured otherwise.
const DefaultShutdownTimeout = 10 * time.Second

// Status is the lifecycle state of a Context.
type Status int

const (
	StatusCreated Status = iota
	StatusStarted
	StatusStopped
	StatusFailed
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusStarted:
		return "started"
	case StatusStopped:
		return "stopped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Handle is the read-only view of a context handed to code that must not
// change it, such as strategy resolvers.
type Handle interface {
	Name() string
	Status() Status
	AllowUseOriginalMessage() bool
}

// Context is one isolated routing runtime.
type Context struct {
	components *Components

	mu                      sync.Mutex
	name                    string
	shutdownTimeout         time.Duration
	allowUseOriginalMessage bool
	status                  Status
	routes                  []*RouteDefinition
	running                 []*runningRoute
	cancel                  context.CancelFunc
	wg                      sync.WaitGroup
}

var _ Handle = (*Context)(nil)

// NewContext creates a context whose endpoints are served by components.
func NewContext(components *Components) *Context {
	return &Context{
		components:      components,
		shutdownTimeout: DefaultShutdownTimeout,
		status:          StatusCreated,
	}
}

// Name returns the context name.
func (c *Context) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// SetName sets the context name.
func (c *Context) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// ShutdownTimeout returns the grace period Stop waits for routes to finish.
func (c *Context) ShutdownTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shutdownTimeout
}

// SetShutdownTimeout sets the grace period Stop waits for routes to finish.
func (c *Context) SetShutdownTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdownTimeout = d
}

// AllowUseOriginalMessage reports whether exchanges keep a copy of the
// message as it was received.
func (c *Context) AllowUseOriginalMessage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowUseOriginalMessage
}

// SetAllowUseOriginalMessage enables or disables original-message retention.
// Retention costs one message copy per exchange.
func (c *Context) SetAllowUseOriginalMessage(allow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowUseOriginalMessage = allow
}

// Status returns the lifecycle state.
func (c *Context) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// AddRoutes lets builder add its routes to the context.
func (c *Context) AddRoutes(builder RoutesBuilder) error {
	if builder == nil {
		return errors.New("routes builder is nil")
	}
	if s := c.Status(); s != StatusCreated {
		return fmt.Errorf("cannot add routes to a %s context", s)
	}
	return builder.AddRoutesToContext(c)
}

// AddRoute validates and adds a single route definition.
func (c *Context) AddRoute(route *RouteDefinition) error {
	if route == nil {
		return errors.New("route definition is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusCreated {
		return fmt.Errorf("cannot add routes to a %s context", c.status)
	}
	if route.id == "" {
		route.id = fmt.Sprintf("%s-route%d", c.name, len(c.routes)+1)
	}
	for _, existing := range c.routes {
		if existing.id == route.id {
			return fmt.Errorf("duplicate route id %q", route.id)
		}
	}
	if err := route.validate(); err != nil {
		return err
	}
	c.routes = append(c.routes, route)
	return nil
}

// Routes returns a snapshot of the context's routes.
func (c *Context) Routes() []RouteInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	counters := make(map[string]*routeCounters, len(c.running))
	for _, rr := range c.running {
		counters[rr.def.id] = &rr.counters
	}

	infos := make([]RouteInfo, 0, len(c.routes))
	for _, r := range c.routes {
		info := RouteInfo{
			ID:       r.id,
			From:     r.from,
			To:       append([]string(nil), r.to...),
			Parallel: r.parallel,
		}
		if rc, ok := counters[r.id]; ok {
			info.Delivered = rc.delivered.Load()
			info.Dropped = rc.dropped.Load()
			info.Failed = rc.failed.Load()
		}
		infos = append(infos, info)
	}
	return infos
}

// Start opens every endpoint of every route and begins routing. It returns
// once all routes are running, or with an error after closing whatever it
// had opened. A context with no routes starts successfully.
func (c *Context) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusCreated {
		return fmt.Errorf("context %q cannot be started: it is %s", c.name, c.status)
	}
	if c.name == "" {
		c.status = StatusFailed
		return errors.New("context cannot be started without a name")
	}

	logger := ctxlog.FromContext(ctx).With("context", c.name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Starting routing context.", "routes", len(c.routes))

	opened := make([]*runningRoute, 0, len(c.routes))
	for _, def := range c.routes {
		rr, err := c.open(ctx, def)
		if err != nil {
			for _, o := range opened {
				o.close()
			}
			c.status = StatusFailed
			logger.Error("Failed to start routing context.", "route", def.id, "error", err)
			return fmt.Errorf("context %q: route %q: %w", c.name, def.id, err)
		}
		opened = append(opened, rr)
	}

	// Routes outlive the call that started them; they stop through Stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.running = opened
	for _, rr := range opened {
		c.wg.Add(1)
		go c.runRoute(runCtx, rr, c.name, c.allowUseOriginalMessage, logger.With("route", rr.def.id))
	}

	c.status = StatusStarted
	logger.Info("Routing context started.", "routes", len(opened))
	return nil
}

// Stop cancels all routes and waits for them to finish, at most for the
// context's shutdown timeout or until ctx is done. Stopping a context that
// is not running is a no-op.
func (c *Context) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusStarted {
		c.mu.Unlock()
		return nil
	}
	name, timeout, running, cancel := c.name, c.shutdownTimeout, c.running, c.cancel
	c.status = StatusStopped
	c.mu.Unlock()

	logger := ctxlog.FromContext(ctx).With("context", name)
	logger.Debug("Stopping routing context.", "timeout", timeout)
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-time.After(timeout):
		errs = append(errs, fmt.Errorf("context %q: routes did not stop within %s", name, timeout))
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("context %q: stop interrupted: %w", name, ctx.Err()))
	}

	for _, rr := range running {
		if err := rr.close(); err != nil {
			errs = append(errs, fmt.Errorf("context %q: route %q: %w", name, rr.def.id, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Warn("Routing context stopped with errors.", "error", err)
		return err
	}
	logger.Info("Routing context stopped.")
	return nil
}

type routeCounters struct {
	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

type runningRoute struct {
	def       *RouteDefinition
	consumer  Consumer
	producers []namedProducer
	counters  routeCounters
}

type namedProducer struct {
	uri string
	Producer
}

// open creates the producers first so that a consumer never delivers into a
// half-built route.
func (c *Context) open(ctx context.Context, def *RouteDefinition) (*runningRoute, error) {
	rr := &runningRoute{def: def}
	for _, uri := range def.to {
		ep, component, err := c.components.resolve(uri)
		if err != nil {
			rr.close()
			return nil, err
		}
		p, err := component.NewProducer(ctx, ep)
		if err != nil {
			rr.close()
			return nil, fmt.Errorf("open producer %q: %w", uri, err)
		}
		rr.producers = append(rr.producers, namedProducer{uri: uri, Producer: p})
	}

	ep, component, err := c.components.resolve(def.from)
	if err != nil {
		rr.close()
		return nil, err
	}
	consumer, err := component.NewConsumer(ctx, ep)
	if err != nil {
		rr.close()
		return nil, fmt.Errorf("open consumer %q: %w", def.from, err)
	}
	rr.consumer = consumer
	return rr, nil
}

func (rr *runningRoute) close() error {
	var errs []error
	if rr.consumer != nil {
		if err := rr.consumer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range rr.producers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Context) runRoute(ctx context.Context, rr *runningRoute, name string, retainOriginal bool, logger *slog.Logger) {
	defer c.wg.Done()
	logger.Debug("Route running.", "from", rr.def.from, "to", rr.def.to)

	err := rr.consumer.Run(ctx, func(ctx context.Context, msg *Message) error {
		ex := &Exchange{Message: msg, ContextName: name, RouteID: rr.def.id}
		if retainOriginal {
			ex.Original = msg.Clone()
		}
		return rr.handle(ctx, ex, logger)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("Route consumer stopped unexpectedly.", "error", err)
		return
	}
	logger.Debug("Route finished.")
}

func (rr *runningRoute) handle(ctx context.Context, ex *Exchange, logger *slog.Logger) error {
	for _, s := range rr.def.steps {
		if err := s.fn(ctx, ex); err != nil {
			if errors.Is(err, ErrStop) {
				rr.counters.dropped.Add(1)
				logger.Debug("Exchange dropped.", "step", s.name, "message_id", ex.Message.ID)
				return nil
			}
			rr.counters.failed.Add(1)
			logger.Error("Route step failed.", "step", s.name, "message_id", ex.Message.ID, "error", err)
			return fmt.Errorf("step %q: %w", s.name, err)
		}
	}

	if err := rr.deliver(ctx, ex); err != nil {
		rr.counters.failed.Add(1)
		logger.Error("Delivery failed.", "message_id", ex.Message.ID, "error", err)
		return err
	}
	rr.counters.delivered.Add(1)
	return nil
}

func (rr *runningRoute) deliver(ctx context.Context, ex *Exchange) error {
	if !rr.def.parallel || len(rr.producers) < 2 {
		for i, p := range rr.producers {
			msg := ex.Message
			if i > 0 {
				msg = msg.Clone()
			}
			if err := p.Send(ctx, msg); err != nil {
				return fmt.Errorf("send to %q: %w", p.uri, err)
			}
		}
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(rr.producers))
	for i, p := range rr.producers {
		wg.Add(1)
		// Each destination gets its own copy so producers cannot race on it.
		msg := ex.Message.Clone()
		go func() {
			defer wg.Done()
			if err := p.Send(ctx, msg); err != nil {
				errs[i] = fmt.Errorf("send to %q: %w", p.uri, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
