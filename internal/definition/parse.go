// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package definition

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/hclutil"
)

var rootSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "route", LabelNames: []string{"type"}},
	},
}

var routeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "from", Required: true},
		{Name: "to", Required: true},
		{Name: "authorize"},
		{Name: "headers"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "filter"},
	},
}

// Parse decodes a profile definition from HCL source, evaluating attributes
// against the process environment.
func Parse(ctx context.Context, name string, src []byte, filename string) (*Definition, error) {
	return ParseWithContext(ctx, name, src, filename, hclutil.NewEvalContext(hclutil.Environ()))
}

// ParseWithContext decodes a profile definition using the given evaluation
// context.
func ParseWithContext(ctx context.Context, name string, src []byte, filename string, evalCtx *hcl.EvalContext) (*Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing profile definition", "profile", name, "file_path", filename)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse profile %s: %w", name, diags)
	}

	def, diags := decodeDefinition(hclFile.Body, evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode profile %s: %w", name, diags)
	}
	def.Name = name
	def.Source = filename

	logger.Debug("Parsed profile definition", "profile", name, "has_route", def.HasRoute())
	return def, nil
}

func decodeDefinition(body hcl.Body, evalCtx *hcl.EvalContext) (*Definition, hcl.Diagnostics) {
	var allDiags hcl.Diagnostics

	content, diags := body.Content(rootSchema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	def := &Definition{}
	if attr, exists := content.Attributes["description"]; exists {
		allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, evalCtx, &def.Description)...)
	}

	routeBlock, diags := hclutil.FindUniqueBlock(content.Blocks, "route")
	allDiags = append(allDiags, diags...)
	// It's not an error for the route block to be absent.
	if routeBlock != nil && !diags.HasErrors() {
		var routeDiags hcl.Diagnostics
		def.Route, routeDiags = decodeRoute(routeBlock, evalCtx)
		allDiags = append(allDiags, routeDiags...)
	}

	return def, allDiags
}

func decodeRoute(block *hcl.Block, evalCtx *hcl.EvalContext) (*Route, hcl.Diagnostics) {
	var allDiags hcl.Diagnostics

	content, diags := block.Body.Content(routeSchema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	route := &Route{Type: block.Labels[0]}

	allDiags = append(allDiags, gohcl.DecodeExpression(content.Attributes["from"].Expr, evalCtx, &route.From)...)
	allDiags = append(allDiags, gohcl.DecodeExpression(content.Attributes["to"].Expr, evalCtx, &route.To)...)

	if attr, exists := content.Attributes["authorize"]; exists {
		allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, evalCtx, &route.Authorize)...)
	}

	if attr, exists := content.Attributes["headers"]; exists {
		val, valDiags := attr.Expr.Value(evalCtx)
		allDiags = append(allDiags, valDiags...)
		if !valDiags.HasErrors() {
			headers, err := hclutil.StringMap(val)
			if err != nil {
				allDiags = append(allDiags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid headers",
					Detail:   err.Error(),
					Subject:  attr.Expr.Range().Ptr(),
				})
			}
			route.Headers = headers
		}
	}

	filterBlock, diags := hclutil.FindUniqueBlock(content.Blocks, "filter")
	allDiags = append(allDiags, diags...)
	if filterBlock != nil && !diags.HasErrors() {
		route.Filter = &Filter{}
		allDiags = append(allDiags, gohcl.DecodeBody(filterBlock.Body, evalCtx, route.Filter)...)
	}

	if route.From == "" && !allDiags.HasErrors() {
		allDiags = append(allDiags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Empty route source",
			Detail:   "The \"from\" attribute must name an endpoint.",
			Subject:  block.DefRange.Ptr(),
		})
	}

	return route, allDiags
}
