// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/routegrid/internal/definition"
	"github.com/specialistvlad/routegrid/internal/routing"
)

// Labels of the built-in strategies.
const (
	Forward    = "forward"
	Multicast  = "multicast"
	FilterType = "filter"
)

// PrincipalHeader names the header checked by the authorization step.
const PrincipalHeader = "x-client-id"

type routeStrategy struct {
	label         string
	profile       string
	route         definition.Route
	env           Env
	parallel      bool
	requireFilter bool
}

func newRouteStrategy(label string, parallel, requireFilter bool) Builder {
	return func(profile string, route *definition.Route, env Env) Strategy {
		return &routeStrategy{
			label:         label,
			profile:       profile,
			route:         *route,
			env:           env,
			parallel:      parallel,
			requireFilter: requireFilter,
		}
	}
}

func (s *routeStrategy) Name() string { return s.label }

func (s *routeStrategy) validate() error {
	var errs []error
	if s.route.From == "" {
		errs = append(errs, errors.New("route has no source"))
	}
	if len(s.route.To) == 0 {
		errs = append(errs, errors.New("route has no destinations"))
	}
	if s.requireFilter && s.route.Filter == nil {
		errs = append(errs, fmt.Errorf("%s route requires a filter block", s.label))
	}
	if f := s.route.Filter; f != nil && f.Header == "" {
		errs = append(errs, errors.New("filter block has an empty header"))
	}
	return errors.Join(errs...)
}

// AddRoutesToContext implements routing.RoutesBuilder.
func (s *routeStrategy) AddRoutesToContext(c *routing.Context) error {
	if err := s.validate(); err != nil {
		return fmt.Errorf("profile %s: %w", s.profile, err)
	}

	rd := routing.From(s.route.From).ID(fmt.Sprintf("%s-%s", c.Name(), s.label))
	if s.route.Authorize {
		rd.Process("authorize", s.authorize)
	}
	if f := s.route.Filter; f != nil {
		rd.Filter(func(ex *routing.Exchange) bool {
			return ex.Message.Header(f.Header) == f.Equals
		})
	}
	rd.SetHeaders(s.route.Headers).To(s.route.To...)
	if s.parallel {
		rd.Parallel()
	}
	return c.AddRoute(rd)
}

func (s *routeStrategy) authorize(_ context.Context, ex *routing.Exchange) error {
	principal := ex.Message.Header(PrincipalHeader)
	if err := s.env.authorizer().Authorize(s.profile, principal); err != nil {
		s.env.logger().Warn("Message rejected by authorization.",
			"profile", s.profile, "context", ex.ContextName, "message_id", ex.Message.ID, "error", err)
		return routing.ErrStop
	}
	return nil
}
