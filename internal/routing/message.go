// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Message is the unit of data moved by a route.
type Message struct {
	ID        string
	Headers   map[string]string
	Body      []byte
	Timestamp time.Time
}

// NewMessage creates a message with a fresh ID.
func NewMessage(body []byte, headers map[string]string) *Message {
	if headers == nil {
		headers = make(map[string]string)
	}
	return &Message{
		ID:        uuid.NewString(),
		Headers:   headers,
		Body:      body,
		Timestamp: time.Now().UTC(),
	}
}

// Header returns the value of a header, or "" when absent.
func (m *Message) Header(key string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[key]
}

// SetHeader sets a header, allocating the map if needed.
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	out := &Message{
		ID:        m.ID,
		Headers:   maps.Clone(m.Headers),
		Timestamp: m.Timestamp,
	}
	if m.Body != nil {
		out.Body = append([]byte(nil), m.Body...)
	}
	return out
}

// Exchange carries a message through the steps of a route.
type Exchange struct {
	Message *Message
	// Original is a snapshot of the message as it was received. It is only
	// populated when the context allows use of the original message.
	Original    *Message
	ContextName string
	RouteID     string
}
