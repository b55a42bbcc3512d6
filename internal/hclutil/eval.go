// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hclutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Environ returns the process environment as a map.
func Environ() map[string]string {
	envMap := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap
}

// NewEvalContext builds the evaluation context profile files are decoded
// with. The environment is exposed as `env.NAME`; a handful of string
// functions are available for composing endpoint URIs.
func NewEvalContext(env map[string]string) *hcl.EvalContext {
	envVal := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		vals := make(map[string]cty.Value, len(env))
		for k, v := range env {
			vals[k] = cty.StringVal(v)
		}
		envVal = cty.MapVal(vals)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envVal,
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"join":   stdlib.JoinFunc,
			"format": stdlib.FormatFunc,
		},
	}
}

// StringMap converts an object or map value into a map of strings. Every
// element must be convertible to a string.
func StringMap(val cty.Value) (map[string]string, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected a map, got %s", ty.FriendlyName())
	}

	out := make(map[string]string, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", k.AsString(), err)
		}
		if s.IsNull() {
			return nil, fmt.Errorf("value for %q is null", k.AsString())
		}
		out[k.AsString()] = s.AsString()
	}
	return out, nil
}
