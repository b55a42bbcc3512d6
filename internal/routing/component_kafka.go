// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
)

// KafkaComponent serves "kafka://<broker>/<topic>" endpoints. Extra brokers
// go in the "brokers" parameter (comma separated) and consumers join the
// consumer group named by "group".
type KafkaComponent struct{}

// kafkaIDHeader carries the message ID across the broker.
const kafkaIDHeader = "routegrid-message-id"

func kafkaBrokers(ep Endpoint) []string {
	var brokers []string
	if ep.URL.Host != "" {
		brokers = append(brokers, ep.URL.Host)
	}
	for _, b := range strings.Split(ep.Param("brokers", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewConsumer implements Component.
func (k *KafkaComponent) NewConsumer(_ context.Context, ep Endpoint) (Consumer, error) {
	brokers := kafkaBrokers(ep)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka endpoint %q requires at least one broker", ep)
	}
	topic := ep.Name()
	if topic == "" {
		return nil, fmt.Errorf("kafka endpoint %q requires a topic", ep)
	}

	group := ep.Param("group", "")
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	}
	if group != "" {
		cfg.GroupID = group
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka endpoint %q: %w", ep, err)
	}

	return &kafkaConsumer{reader: kafka.NewReader(cfg), commit: group != ""}, nil
}

// NewProducer implements Component.
func (k *KafkaComponent) NewProducer(_ context.Context, ep Endpoint) (Producer, error) {
	brokers := kafkaBrokers(ep)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka endpoint %q requires at least one broker", ep)
	}
	topic := ep.Name()
	if topic == "" {
		return nil, fmt.Errorf("kafka endpoint %q requires a topic", ep)
	}
	return &kafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}, nil
}

// kafkaReader is the part of *kafka.Reader the consumer drives.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaConsumer struct {
	reader kafkaReader
	commit bool
}

func (c *kafkaConsumer) Run(ctx context.Context, handler Handler) error {
	logger := ctxlog.FromContext(ctx)
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		msg := fromKafkaMessage(m)
		if err := handler(ctx, msg); err != nil {
			if !c.commit {
				continue
			}
			// Committing any later offset would skip this one, so the route
			// stops and the group redelivers it once the reader rejoins.
			return fmt.Errorf("handle kafka message %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
		}
		if c.commit {
			if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
				logger.Warn("Failed to commit kafka message.", "topic", m.Topic, "offset", m.Offset, "error", err)
			}
		}
	}
}

func (c *kafkaConsumer) Close() error {
	return c.reader.Close()
}

func fromKafkaMessage(m kafka.Message) *Message {
	headers := make(map[string]string, len(m.Headers)+2)
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	headers["kafka-topic"] = m.Topic
	headers["kafka-key"] = string(m.Key)

	msg := NewMessage(m.Value, headers)
	if id := headers[kafkaIDHeader]; id != "" {
		msg.ID = id
		delete(msg.Headers, kafkaIDHeader)
	}
	if !m.Time.IsZero() {
		msg.Timestamp = m.Time
	}
	return msg
}

type kafkaProducer struct {
	writer *kafka.Writer
}

func (p *kafkaProducer) Send(ctx context.Context, msg *Message) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+1)
	headers = append(headers, kafka.Header{Key: kafkaIDHeader, Value: []byte(msg.ID)})
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.ID),
		Value:   msg.Body,
		Headers: headers,
		Time:    msg.Timestamp,
	})
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}
