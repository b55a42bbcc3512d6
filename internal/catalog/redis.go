// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/routegrid/internal/definition"
	"github.com/specialistvlad/routegrid/internal/profile"
)

// DefaultKeyPrefix prefixes every key of the redis catalog.
const DefaultKeyPrefix = "routegrid"

// Redis is a catalog stored in redis:
//
//	<prefix>:<category>:profiles            list of lines for every scope
//	<prefix>:<category>:scope:<scope>       list of lines for one scope
//	<prefix>:<category>:definition:<name>   HCL source of a definition
type Redis struct {
	client redis.UniversalClient
	prefix string
}

var _ Catalog = (*Redis)(nil)

// NewRedis creates a redis-backed catalog. An empty prefix selects
// DefaultKeyPrefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// ConnectRedis parses a redis URL, checks the server is reachable and
// returns a catalog using it.
func ConnectRedis(ctx context.Context, redisURL, prefix string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis catalog: %w", err)
	}
	return NewRedis(client, prefix), nil
}

// Close closes the underlying client.
func (c *Redis) Close() error {
	return c.client.Close()
}

// ProfilesKey is the key of the lines listed for every scope.
func (c *Redis) ProfilesKey(category profile.Category) string {
	return fmt.Sprintf("%s:%s:profiles", c.prefix, category)
}

// ScopeKey is the key of the lines listed for one scope.
func (c *Redis) ScopeKey(category profile.Category, scope string) string {
	return fmt.Sprintf("%s:%s:scope:%s", c.prefix, category, strings.ToLower(scope))
}

// DefinitionKey is the key holding the source of a definition.
func (c *Redis) DefinitionKey(category profile.Category, name string) string {
	return fmt.Sprintf("%s:%s:definition:%s", c.prefix, category, name)
}

// ListProfiles implements Catalog.
func (c *Redis) ListProfiles(ctx context.Context, category profile.Category, scope string) ([]string, error) {
	lines, err := c.client.LRange(ctx, c.ProfilesKey(category), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s profiles: %w", category, err)
	}
	if scope == "" {
		return lines, nil
	}
	scoped, err := c.client.LRange(ctx, c.ScopeKey(category, scope), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s profiles for %s: %w", category, scope, err)
	}
	return append(lines, scoped...), nil
}

// LoadDefinition implements Catalog.
func (c *Redis) LoadDefinition(ctx context.Context, category profile.Category, name string) (*definition.Definition, error) {
	key := c.DefinitionKey(category, name)
	src, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s profile %q: %w", category, name, ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s profile %q: %w", category, name, err)
	}
	return definition.Parse(ctx, name, src, key)
}
