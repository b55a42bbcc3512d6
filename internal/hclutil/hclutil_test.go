// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package hclutil

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestFindUniqueBlock(t *testing.T) {
	src := `
route "forward" {}
other {}
`
	file, diags := hclsyntax.ParseConfig([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())

	content, _, diags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "route", LabelNames: []string{"type"}}, {Type: "other"}},
	})
	require.False(t, diags.HasErrors(), diags.Error())

	block, diags := FindUniqueBlock(content.Blocks, "route")
	require.False(t, diags.HasErrors())
	require.NotNil(t, block)
	assert.Equal(t, []string{"forward"}, block.Labels)

	missing, diags := FindUniqueBlock(content.Blocks, "filter")
	assert.False(t, diags.HasErrors())
	assert.Nil(t, missing)
}

func TestFindUniqueBlock_Duplicate(t *testing.T) {
	src := `
route "forward" {}
route "multicast" {}
`
	file, diags := hclsyntax.ParseConfig([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	content, diags := file.Body.Content(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "route", LabelNames: []string{"type"}}},
	})
	require.False(t, diags.HasErrors(), diags.Error())

	_, diags = FindUniqueBlock(content.Blocks, "route")
	require.True(t, diags.HasErrors())
	assert.Contains(t, diags.Error(), `Duplicate "route" block`)
}

func TestNewEvalContext(t *testing.T) {
	ctx := NewEvalContext(map[string]string{"BROKER": "localhost:9092"})

	expr, diags := hclsyntax.ParseTemplate([]byte(`kafka://${env.BROKER}/${lower("IN")}`), "t.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())

	val, diags := expr.Value(ctx)
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, "kafka://localhost:9092/in", val.AsString())
}

func TestNewEvalContext_EmptyEnv(t *testing.T) {
	ctx := NewEvalContext(nil)
	require.Contains(t, ctx.Variables, "env")
	assert.Equal(t, 0, ctx.Variables["env"].LengthInt())
}

func TestStringMap(t *testing.T) {
	val := cty.ObjectVal(map[string]cty.Value{
		"x-tenant": cty.StringVal("tenantA"),
		"x-retry":  cty.NumberIntVal(3),
		"x-debug":  cty.True,
	})

	out, err := StringMap(val)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x-tenant": "tenantA", "x-retry": "3", "x-debug": "true"}, out)

	_, err = StringMap(cty.StringVal("nope"))
	require.Error(t, err)

	out, err = StringMap(cty.NullVal(cty.Map(cty.String)))
	require.NoError(t, err)
	assert.Nil(t, out)
}
