// Package graph builds live, executable workflow graphs from workflow
// documents and implements per-variant node behavior.
package graph

import (
	"strings"

	"github.com/rendis/flowforge/internal/expressions"
	"github.com/rendis/flowforge/pkg/schema"
)

// Options carries the shared services nodes need at execution time.
type Options struct {
	Engines *expressions.Registry
	LLM     *LLMClient
}

// Graph owns a set of linked nodes and the designated start node. Nodes
// never outlive their graph, they reference each other only through the
// successor lists wired at construction.
type Graph struct {
	nodes   map[string]*Node
	start   *Node
	context map[string]any

	engines *expressions.Registry
	llm     *LLMClient
}

// New parses a workflow document into a live graph. It fails with a
// graph error before any execution when the document declares an
// unknown variant, a dangling edge, or zero or multiple input nodes.
func New(doc *schema.WorkflowDocument, opts Options) (*Graph, error) {
	if opts.Engines == nil {
		opts.Engines = expressions.NewRegistry()
	}

	g := &Graph{
		nodes:   make(map[string]*Node, len(doc.Nodes)),
		context: documentContext(doc.Context),
		engines: opts.Engines,
		llm:     opts.LLM,
	}

	for _, def := range doc.Nodes {
		if err := g.addNode(def); err != nil {
			return nil, err
		}
	}
	if g.start == nil {
		return nil, schema.NewError(schema.ErrCodeGraph, "workflow has no input node")
	}

	for _, edge := range doc.Edges {
		if err := g.connect(edge); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Start returns the designated start node.
func (g *Graph) Start() *Node {
	return g.start
}

// NodeByID returns a node by id.
func (g *Graph) NodeByID(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len reports how many nodes the graph owns.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// ContextData returns the workflow's static context data, with vars and
// secrets exposed under their scope keys for template resolution.
func (g *Graph) ContextData() map[string]any {
	return g.context
}

func (g *Graph) addNode(def schema.NodeDefinition) error {
	if def.ID == "" {
		return schema.NewError(schema.ErrCodeGraph, "node with empty id")
	}
	if _, dup := g.nodes[def.ID]; dup {
		return schema.NewErrorf(schema.ErrCodeGraph, "duplicate node id %q", def.ID)
	}

	variant := def.Data.Type
	if !schema.ValidNodeTypes[variant] {
		return schema.NewErrorf(schema.ErrCodeGraph, "node %s has unknown variant %q", def.ID, variant).WithNode(def.ID)
	}

	node := &Node{
		ID:          def.ID,
		Variant:     variant,
		Label:       def.Data.Label,
		Action:      def.Data.Action,
		Description: def.Data.Description,
		Condition:   def.Data.Condition,
		Engine:      def.Data.Engine,
		Expression:  def.Data.Expression,
		Model:       def.Data.Model,
		Temperature: def.Data.Temperature,
		MaxTokens:   def.Data.MaxTokens,
		Messages:    def.Data.Messages,
		IP:          def.Data.IP,
		Port:        def.Data.Port,
		graph:       g,
	}
	g.nodes[def.ID] = node

	if variant == schema.NodeTypeInput {
		if g.start != nil {
			return schema.NewErrorf(schema.ErrCodeGraph,
				"multiple input nodes: %s and %s", g.start.ID, def.ID).WithNode(def.ID)
		}
		g.start = node
	}
	return nil
}

// connect wires one edge. Conditional sources route by handle, fanIn
// sources collect parallel successors, everything else appends to the
// plain successor list.
func (g *Graph) connect(edge schema.EdgeDefinition) error {
	source, ok := g.nodes[edge.Source]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeGraph, "edge references unknown source node %q", edge.Source)
	}
	target, ok := g.nodes[edge.Target]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeGraph, "edge references unknown target node %q", edge.Target)
	}

	switch source.Variant {
	case schema.NodeTypeConditional:
		switch strings.ToLower(edge.SourceHandle) {
		case "true":
			source.TrueBranch = append(source.TrueBranch, target)
		case "false":
			source.FalseBranch = append(source.FalseBranch, target)
		default:
			return schema.NewErrorf(schema.ErrCodeGraph,
				"conditional node %s edge needs a true or false handle, got %q",
				source.ID, edge.SourceHandle).WithNode(source.ID)
		}
	case schema.NodeTypeFanIn:
		source.Parallel = append(source.Parallel, target)
	default:
		source.Next = append(source.Next, target)
	}
	return nil
}

// documentContext flattens a document's vars and secrets into the
// resolver's context scope. Vars sit at top level and both roots stay
// addressable as context.vars.* and context.secrets.*.
func documentContext(dc *schema.DocumentContext) map[string]any {
	out := map[string]any{}
	if dc == nil {
		return out
	}
	for k, v := range dc.Vars {
		out[k] = v
	}
	if dc.Vars != nil {
		out["vars"] = dc.Vars
	}
	if dc.Secrets != nil {
		out["secrets"] = dc.Secrets
	}
	return out
}
