// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package authz decides which principals may send messages through a
// profile's routes. The policy is loaded once at startup and shared by every
// routing context.
package authz

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// FileName is the policy file looked up in the resources directory.
const FileName = "authorization.yaml"

// Wildcard as a principal grants access to everyone.
const Wildcard = "*"

// ErrDenied is returned when a principal may not use a profile.
var ErrDenied = errors.New("access denied")

// Authorizer decides whether principal may use the routes of profile.
type Authorizer interface {
	Authorize(profile, principal string) error
}

type allowAll struct{}

func (allowAll) Authorize(string, string) error { return nil }

// AllowAll grants every request.
var AllowAll Authorizer = allowAll{}

// Policy is a static allow-list per profile. Profiles absent from the
// policy deny everyone.
type Policy struct {
	Profiles map[string][]string `yaml:"profiles"`
}

// Authorize implements Authorizer.
func (p *Policy) Authorize(profile, principal string) error {
	allowed, ok := p.Profiles[profile]
	if !ok {
		return fmt.Errorf("profile %q: %w", profile, ErrDenied)
	}
	if slices.Contains(allowed, Wildcard) {
		return nil
	}
	if principal == "" || !slices.Contains(allowed, principal) {
		return fmt.Errorf("principal %q on profile %q: %w", principal, profile, ErrDenied)
	}
	return nil
}

// Parse decodes a YAML policy document.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse authorization policy: %w", err)
	}
	if p.Profiles == nil {
		p.Profiles = make(map[string][]string)
	}
	for name, principals := range p.Profiles {
		cleaned := principals[:0]
		for _, pr := range principals {
			if pr = strings.TrimSpace(pr); pr != "" {
				cleaned = append(cleaned, pr)
			}
		}
		p.Profiles[name] = cleaned
	}
	return &p, nil
}

// LoadFile loads the policy from FileName inside resourcesPath. Without a
// policy file every request is allowed.
func LoadFile(ctx context.Context, resourcesPath string) (Authorizer, error) {
	logger := ctxlog.FromContext(ctx)
	path := filepath.Join(resourcesPath, FileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("No authorization policy found, allowing all principals.", "path", path)
		return AllowAll, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read authorization policy %s: %w", path, err)
	}

	policy, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("Authorization policy loaded.", "path", path, "profiles", len(policy.Profiles))
	return policy, nil
}
