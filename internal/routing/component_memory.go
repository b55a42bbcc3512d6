// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"sync"
)

// DefaultQueueSize is the buffer of each in-process queue.
const DefaultQueueSize = 256

// Hub holds the named in-process queues behind "memory:" endpoints. Queues
// are created on first use and are point-to-point: when several consumers
// read one queue each message reaches exactly one of them.
type Hub struct {
	mu     sync.Mutex
	size   int
	queues map[string]chan *Message
}

// NewHub creates a hub whose queues buffer size messages. A non-positive
// size selects DefaultQueueSize.
func NewHub(size int) *Hub {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Hub{size: size, queues: make(map[string]chan *Message)}
}

func (h *Hub) queue(name string) chan *Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.queues[name]
	if !ok {
		q = make(chan *Message, h.size)
		h.queues[name] = q
	}
	return q
}

// Send enqueues a copy of msg on the named queue, blocking while it is full.
// The receiver owns the copy, so contexts on either side never share headers.
func (h *Hub) Send(ctx context.Context, name string, msg *Message) error {
	select {
	case h.queue(name) <- msg.Clone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive dequeues the next message from the named queue.
func (h *Hub) Receive(ctx context.Context, name string) (*Message, error) {
	select {
	case msg := <-h.queue(name):
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of messages waiting on the named queue.
func (h *Hub) Len(name string) int {
	return len(h.queue(name))
}

// MemoryComponent serves "memory:<queue>" endpoints from a Hub.
type MemoryComponent struct {
	Hub *Hub
}

// NewConsumer implements Component.
func (m *MemoryComponent) NewConsumer(_ context.Context, ep Endpoint) (Consumer, error) {
	return &memoryConsumer{hub: m.Hub, name: ep.Name()}, nil
}

// NewProducer implements Component.
func (m *MemoryComponent) NewProducer(_ context.Context, ep Endpoint) (Producer, error) {
	return &memoryProducer{hub: m.Hub, name: ep.Name()}, nil
}

type memoryConsumer struct {
	hub  *Hub
	name string
}

func (c *memoryConsumer) Run(ctx context.Context, handler Handler) error {
	q := c.hub.queue(c.name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-q:
			// Failures are logged and counted by the route; the queue moves on.
			_ = handler(ctx, msg)
		}
	}
}

func (c *memoryConsumer) Close() error { return nil }

type memoryProducer struct {
	hub  *Hub
	name string
}

func (p *memoryProducer) Send(ctx context.Context, msg *Message) error {
	return p.hub.Send(ctx, p.name, msg)
}

func (p *memoryProducer) Close() error { return nil }
