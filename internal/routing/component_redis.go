// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package routing

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisComponent serves "redis://<host>:<port>/<db>?channel=<name>"
// endpoints over redis pub/sub.
type RedisComponent struct{}

func redisOptions(ep Endpoint) (*redis.Options, string, error) {
	channel := ep.Param("channel", "")
	if channel == "" {
		return nil, "", fmt.Errorf("redis endpoint %q requires a channel parameter", ep)
	}
	// go-redis rejects query parameters it does not know.
	u := *ep.URL
	u.RawQuery = ""
	opt, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, "", fmt.Errorf("redis endpoint %q: %w", ep, err)
	}
	return opt, channel, nil
}

// NewConsumer implements Component. The subscription is confirmed before it
// returns, so an unreachable server fails the context start.
func (r *RedisComponent) NewConsumer(ctx context.Context, ep Endpoint) (Consumer, error) {
	opt, channel, err := redisOptions(ep)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("subscribe to redis channel %q: %w", channel, err)
	}
	return &redisConsumer{client: client, pubsub: pubsub}, nil
}

// NewProducer implements Component.
func (r *RedisComponent) NewProducer(ctx context.Context, ep Endpoint) (Producer, error) {
	opt, channel, err := redisOptions(ep)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &redisProducer{client: client, channel: channel}, nil
}

type redisConsumer struct {
	client *redis.Client
	pubsub *redis.PubSub
}

func (c *redisConsumer) Run(ctx context.Context, handler Handler) error {
	ch := c.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("redis subscription closed")
			}
			msg := NewMessage([]byte(m.Payload), map[string]string{"redis-channel": m.Channel})
			_ = handler(ctx, msg)
		}
	}
}

func (c *redisConsumer) Close() error {
	err := c.pubsub.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}

type redisProducer struct {
	client  *redis.Client
	channel string
}

func (p *redisProducer) Send(ctx context.Context, msg *Message) error {
	return p.client.Publish(ctx, p.channel, msg.Body).Err()
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
