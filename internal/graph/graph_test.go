package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowforge/pkg/schema"
)

func node(id string, variant schema.NodeType, mutate ...func(*schema.NodeData)) schema.NodeDefinition {
	data := schema.NodeData{Type: variant}
	for _, m := range mutate {
		m(&data)
	}
	return schema.NodeDefinition{ID: id, Type: string(variant), Data: data}
}

func edge(source, target, handle string) schema.EdgeDefinition {
	return schema.EdgeDefinition{Source: source, Target: target, SourceHandle: handle}
}

func TestNew_WiresVariants(t *testing.T) {
	doc := &schema.WorkflowDocument{
		Nodes: []schema.NodeDefinition{
			node("start", schema.NodeTypeInput),
			node("cond", schema.NodeTypeConditional, func(d *schema.NodeData) { d.Condition = "5 > 3" }),
			node("fan", schema.NodeTypeFanIn),
			node("a", schema.NodeTypeTransform),
			node("b", schema.NodeTypeTransform),
			node("end", schema.NodeTypeOutput),
		},
		Edges: []schema.EdgeDefinition{
			edge("start", "cond", ""),
			edge("cond", "fan", "true"),
			edge("cond", "end", "FALSE"),
			edge("fan", "a", ""),
			edge("fan", "b", ""),
			edge("a", "end", ""),
		},
	}

	g, err := New(doc, Options{})
	require.NoError(t, err)

	assert.Equal(t, "start", g.Start().ID)
	assert.Equal(t, 6, g.Len())

	cond, ok := g.NodeByID("cond")
	require.True(t, ok)
	require.Len(t, cond.TrueBranch, 1)
	assert.Equal(t, "fan", cond.TrueBranch[0].ID)
	require.Len(t, cond.FalseBranch, 1)
	assert.Equal(t, "end", cond.FalseBranch[0].ID)

	fan, _ := g.NodeByID("fan")
	assert.Len(t, fan.Parallel, 2)
	assert.Empty(t, fan.Next)
}

func TestNew_ConstructionErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  *schema.WorkflowDocument
	}{
		{
			"no input node",
			&schema.WorkflowDocument{Nodes: []schema.NodeDefinition{node("t", schema.NodeTypeTransform)}},
		},
		{
			"multiple input nodes",
			&schema.WorkflowDocument{Nodes: []schema.NodeDefinition{
				node("a", schema.NodeTypeInput),
				node("b", schema.NodeTypeInput),
			}},
		},
		{
			"unknown variant",
			&schema.WorkflowDocument{Nodes: []schema.NodeDefinition{
				node("a", schema.NodeTypeInput),
				node("x", schema.NodeType("mystery")),
			}},
		},
		{
			"duplicate node id",
			&schema.WorkflowDocument{Nodes: []schema.NodeDefinition{
				node("a", schema.NodeTypeInput),
				node("a", schema.NodeTypeOutput),
			}},
		},
		{
			"dangling edge target",
			&schema.WorkflowDocument{
				Nodes: []schema.NodeDefinition{node("a", schema.NodeTypeInput)},
				Edges: []schema.EdgeDefinition{edge("a", "ghost", "")},
			},
		},
		{
			"dangling edge source",
			&schema.WorkflowDocument{
				Nodes: []schema.NodeDefinition{node("a", schema.NodeTypeInput)},
				Edges: []schema.EdgeDefinition{edge("ghost", "a", "")},
			},
		},
		{
			"conditional edge without handle",
			&schema.WorkflowDocument{
				Nodes: []schema.NodeDefinition{
					node("a", schema.NodeTypeInput),
					node("c", schema.NodeTypeConditional),
					node("o", schema.NodeTypeOutput),
				},
				Edges: []schema.EdgeDefinition{edge("c", "o", "")},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.doc, Options{})
			require.Error(t, err)
			var flowErr *schema.FlowError
			require.True(t, errors.As(err, &flowErr))
			assert.Equal(t, schema.ErrCodeGraph, flowErr.Code)
		})
	}
}

func TestDocumentContext_Flattening(t *testing.T) {
	doc := &schema.WorkflowDocument{
		Nodes: []schema.NodeDefinition{node("a", schema.NodeTypeInput)},
		Context: &schema.DocumentContext{
			Vars:    map[string]any{"temperature": 32.0},
			Secrets: map[string]any{"api_key": "abc123"},
		},
	}

	g, err := New(doc, Options{})
	require.NoError(t, err)

	ctx := g.ContextData()
	assert.Equal(t, 32.0, ctx["temperature"])
	assert.Equal(t, map[string]any{"temperature": 32.0}, ctx["vars"])
	assert.Equal(t, map[string]any{"api_key": "abc123"}, ctx["secrets"])
}
