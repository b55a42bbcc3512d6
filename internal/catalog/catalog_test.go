// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/routegrid/internal/definition"
	"github.com/specialistvlad/routegrid/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const billingHCL = `
description = "billing bridge"

route "forward" {
  from = "memory:billing-in"
  to   = ["memory:billing-out"]
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFS_ListProfiles_Index(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "service", IndexFile), `
profiles:
  - audit.hcl
  - "tenantB, reports.hcl"
scopes:
  TenantA:
    - billing.hcl
  tenantB:
    - invoices.hcl
`)
	c := NewFS(root)
	ctx := context.Background()

	lines, err := c.ListProfiles(ctx, profile.Service, "tenanta")
	require.NoError(t, err)
	assert.Equal(t, []string{"audit.hcl", "tenantB, reports.hcl", "billing.hcl"}, lines)

	lines, err = c.ListProfiles(ctx, profile.Service, "other")
	require.NoError(t, err)
	assert.Equal(t, []string{"audit.hcl", "tenantB, reports.hcl"}, lines)
}

func TestFS_ListProfiles_WithoutIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "api", "b.hcl"), billingHCL)
	writeFile(t, filepath.Join(root, "api", "a.hcl"), billingHCL)
	writeFile(t, filepath.Join(root, "api", "README.md"), "docs")

	lines, err := NewFS(root).ListProfiles(context.Background(), profile.API, "any")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.hcl", "b.hcl"}, lines)

	lines, err = NewFS(root).ListProfiles(context.Background(), profile.Service, "any")
	require.NoError(t, err)
	assert.Empty(t, lines, "missing category directory lists nothing")
}

func TestFS_ListProfiles_BrokenIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "service", IndexFile), "profiles: {")

	_, err := NewFS(root).ListProfiles(context.Background(), profile.Service, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), IndexFile)
}

func TestFS_LoadDefinition(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "service", "billing.hcl"), billingHCL)
	c := NewFS(root)
	ctx := context.Background()

	def, err := c.LoadDefinition(ctx, profile.Service, "billing.hcl")
	require.NoError(t, err)
	assert.Equal(t, "billing.hcl", def.Name)
	assert.Equal(t, "billing bridge", def.Description)
	require.True(t, def.HasRoute())
	assert.Equal(t, "forward", def.Route.Type)

	_, err = c.LoadDefinition(ctx, profile.API, "billing.hcl")
	require.ErrorIs(t, err, ErrProfileNotFound, "categories are separate")

	_, err = c.LoadDefinition(ctx, profile.Service, "../service/billing.hcl")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFS_LoadDefinition_InvalidHCL(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "service", "broken.hcl"), `route "forward" {`)

	_, err := NewFS(root).LoadDefinition(context.Background(), profile.Service, "broken.hcl")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileNotFound)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.AddLines(profile.Service, "a.hcl", "tenantA, b.hcl")
	m.PutDefinition(profile.Service, "a.hcl", &definition.Definition{Description: "a"})
	ctx := context.Background()

	lines, err := m.ListProfiles(ctx, profile.Service, "whatever")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.hcl", "tenantA, b.hcl"}, lines)
	lines[0] = "mutated"
	again, _ := m.ListProfiles(ctx, profile.Service, "")
	assert.Equal(t, "a.hcl", again[0], "callers get a copy")

	lines, err = m.ListProfiles(ctx, profile.API, "")
	require.NoError(t, err)
	assert.Empty(t, lines)

	def, err := m.LoadDefinition(ctx, profile.Service, "a.hcl")
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", def.Name)

	_, err = m.LoadDefinition(ctx, profile.Service, "b.hcl")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestIndex_Lines(t *testing.T) {
	idx := Index{
		Profiles: []string{"common.hcl"},
		Scopes:   map[string][]string{"b": {"b.hcl"}, "B": {"B.hcl"}, "c": {"c.hcl"}},
	}
	assert.Equal(t, []string{"common.hcl", "B.hcl", "b.hcl"}, idx.Lines("b"))
	assert.Equal(t, []string{"common.hcl"}, idx.Lines(""))
}

func TestRedis_Keys(t *testing.T) {
	c := NewRedis(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "")
	defer c.Close()

	assert.Equal(t, "routegrid:service:profiles", c.ProfilesKey(profile.Service))
	assert.Equal(t, "routegrid:api:scope:tenanta", c.ScopeKey(profile.API, "TenantA"))
	assert.Equal(t, "routegrid:api:definition:billing.hcl", c.DefinitionKey(profile.API, "billing.hcl"))

	custom := NewRedis(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "edge")
	defer custom.Close()
	assert.Equal(t, "edge:service:profiles", custom.ProfilesKey(profile.Service))
}

func TestConnectRedis_InvalidURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "not-a-redis-url", "")
	require.Error(t, err)
}

// TestRedis_Live runs against a real server when ROUTEGRID_TEST_REDIS_URL is
// set, e.g. redis://localhost:6379/15.
func TestRedis_Live(t *testing.T) {
	url := os.Getenv("ROUTEGRID_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ROUTEGRID_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := ConnectRedis(ctx, url, "routegrid-test")
	require.NoError(t, err)
	defer c.Close()

	keys := []string{
		c.ProfilesKey(profile.Service),
		c.ScopeKey(profile.Service, "tenantA"),
		c.DefinitionKey(profile.Service, "billing.hcl"),
	}
	require.NoError(t, c.client.Del(ctx, keys...).Err())
	t.Cleanup(func() { c.client.Del(context.Background(), keys...) })

	require.NoError(t, c.client.RPush(ctx, keys[0], "audit.hcl").Err())
	require.NoError(t, c.client.RPush(ctx, keys[1], "billing.hcl").Err())
	require.NoError(t, c.client.Set(ctx, keys[2], billingHCL, 0).Err())

	lines, err := c.ListProfiles(ctx, profile.Service, "TENANTA")
	require.NoError(t, err)
	assert.Equal(t, []string{"audit.hcl", "billing.hcl"}, lines)

	def, err := c.LoadDefinition(ctx, profile.Service, "billing.hcl")
	require.NoError(t, err)
	assert.Equal(t, "forward", def.Route.Type)

	_, err = c.LoadDefinition(ctx, profile.Service, "audit.hcl")
	require.ErrorIs(t, err, ErrProfileNotFound)
}
