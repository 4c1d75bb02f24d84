package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rendis/flowforge/internal/boolexpr"
	"github.com/rendis/flowforge/internal/resolver"
	"github.com/rendis/flowforge/pkg/schema"
)

// Node is one executable step of a live graph. Variants are a closed
// set: dispatch happens in a single switch over Variant, with the
// variant-specific fields populated only where the document declares
// them.
type Node struct {
	ID          string
	Variant     schema.NodeType
	Label       string
	Action      string
	Description string

	// Plain successor list, used by every variant except conditional and
	// fanIn.
	Next []*Node

	// Conditional routing. Each branch may hold zero, one, or multiple
	// targets.
	Condition   any
	TrueBranch  []*Node
	FalseBranch []*Node

	// FanIn's parallel successor list, kept apart from Next.
	Parallel []*Node

	// Transform settings.
	Engine     string
	Expression string

	// LLM settings.
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []schema.ChatMessage
	IP          string
	Port        int

	graph *Graph
}

// Execute runs the node against the current run state and returns the
// successor nodes the scheduler should visit next. Exactly one history
// record is written before returning, on success or failure.
func (n *Node) Execute(ctx context.Context, ec *ExecContext, input any) ([]*Node, error) {
	switch n.Variant {
	case schema.NodeTypeInput:
		return n.executeInput(ec)
	case schema.NodeTypeTransform:
		return n.executeTransform(ctx, ec, input)
	case schema.NodeTypeConditional:
		return n.executeConditional(ec, input)
	case schema.NodeTypeFanIn:
		return n.executeFanIn(ec, input)
	case schema.NodeTypeFanOut:
		return n.executeFanOut(ec, input)
	case schema.NodeTypeAPI:
		return n.executeEcho(ec, input, "api_response")
	case schema.NodeTypeWebhook:
		return n.executeEcho(ec, input, "webhook_response")
	case schema.NodeTypeLLM:
		return n.executeLLM(ctx, ec, input)
	case schema.NodeTypeOutput:
		return n.executeOutput(ec, input)
	default:
		err := schema.NewErrorf(schema.ErrCodeGraph, "node %s has unknown variant %q", n.ID, n.Variant).WithNode(n.ID)
		n.fail(ec, input, err)
		return nil, err
	}
}

// executeInput parses the node's action text into the run's initial
// value. Template references in the action resolve against the
// workflow's static context before parsing.
func (n *Node) executeInput(ec *ExecContext) ([]*Node, error) {
	r := resolver.New(ec.ContextData, nil, ec.GlobalData)
	resolved, _ := r.Resolve(n.Action).(string)

	output := ParseLiteral(resolved)
	ec.CurrentData = output
	ec.Record(n.ID, schema.NodeStatusCompleted, nil, output)
	return n.Next, nil
}

func (n *Node) executeTransform(ctx context.Context, ec *ExecContext, input any) ([]*Node, error) {
	// With no expression configured the node wraps its input, preserving
	// the original pass-through behavior.
	if n.Expression == "" {
		output := map[string]any{"transformed_data": input}
		ec.CurrentData = output
		ec.Record(n.ID, schema.NodeStatusCompleted, input, output)
		return n.Next, nil
	}

	engine, err := n.graph.engines.ForName(n.Engine)
	if err != nil {
		n.fail(ec, input, err)
		return nil, err
	}

	output, err := engine.Evaluate(ctx, n.Expression, map[string]any{
		"input":   input,
		"context": ec.ContextData,
		"global":  ec.GlobalData,
	})
	if err != nil {
		n.fail(ec, input, err)
		return nil, err
	}

	ec.CurrentData = output
	ec.Record(n.ID, schema.NodeStatusCompleted, input, output)
	return n.Next, nil
}

// executeConditional routes to the true or false branch. The condition
// is either a literal boolean or an expression evaluated against the
// run's data scopes. Evaluation failures record a failed entry and halt
// this branch only.
func (n *Node) executeConditional(ec *ExecContext, input any) ([]*Node, error) {
	result, err := n.evalCondition(ec, input)
	if err != nil {
		n.fail(ec, input, err)
		return nil, err
	}

	ec.Record(n.ID, schema.NodeStatusEvaluated, input, map[string]any{"condition_result": result})
	if result {
		return n.TrueBranch, nil
	}
	return n.FalseBranch, nil
}

func (n *Node) evalCondition(ec *ExecContext, input any) (bool, error) {
	switch cond := n.Condition.(type) {
	case nil:
		return false, nil
	case bool:
		return cond, nil
	case string:
		ast, err := boolexpr.Parse(cond)
		if err != nil {
			return false, err
		}
		value, err := boolexpr.Evaluate(ast, conditionScope(ec, input))
		if err != nil {
			return false, err
		}
		return boolexpr.Truthy(value), nil
	default:
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"node %s condition must be a boolean or expression string, got %T", n.ID, n.Condition).WithNode(n.ID)
	}
}

// conditionScope builds the variable scope conditions evaluate against:
// the workflow's static vars at top level, plus the input, context and
// global roots for template paths.
func conditionScope(ec *ExecContext, input any) map[string]any {
	scope := make(map[string]any, len(ec.ContextData)+3)
	for k, v := range ec.ContextData {
		scope[k] = v
	}
	scope["context"] = ec.ContextData
	scope["global"] = ec.GlobalData
	scope["input"] = input
	return scope
}

func (n *Node) executeFanIn(ec *ExecContext, input any) ([]*Node, error) {
	ec.Record(n.ID, schema.NodeStatusParallelStart, input, map[string]any{
		"parallel_count": len(n.Parallel),
	})
	return n.Parallel, nil
}

func (n *Node) executeFanOut(ec *ExecContext, input any) ([]*Node, error) {
	output := map[string]any{"merged": input}
	ec.CurrentData = output
	ec.Record(n.ID, schema.NodeStatusParallelEnd, input, output)
	return n.Next, nil
}

// executeEcho is the api and webhook placeholder behavior: wrap the
// input in a synthetic response envelope under the given key.
func (n *Node) executeEcho(ec *ExecContext, input any, key string) ([]*Node, error) {
	output := map[string]any{key: input}
	ec.CurrentData = output
	ec.Record(n.ID, schema.NodeStatusCompleted, input, output)
	return n.Next, nil
}

func (n *Node) executeLLM(ctx context.Context, ec *ExecContext, input any) ([]*Node, error) {
	if n.graph.llm == nil {
		err := schema.NewError(schema.ErrCodeValidation, "llm client not configured").WithNode(n.ID)
		n.fail(ec, input, err)
		return nil, err
	}

	r := resolver.New(ec.ContextData, input, ec.GlobalData)
	messages := make([]schema.ChatMessage, 0, len(n.Messages)+1)
	for _, m := range n.Messages {
		content, _ := r.Resolve(m.Content).(string)
		messages = append(messages, schema.ChatMessage{Role: m.Role, Content: content})
	}
	if input != nil {
		messages = append(messages, schema.ChatMessage{Role: "user", Content: stringifyInput(input)})
	}

	content, err := n.graph.llm.ChatCompletion(ctx, CompletionSpec{
		IP:          n.IP,
		Port:        n.Port,
		Model:       n.Model,
		Temperature: n.Temperature,
		MaxTokens:   n.MaxTokens,
		Messages:    messages,
	})
	if err != nil {
		n.fail(ec, input, err)
		return nil, err
	}

	ec.CurrentData = content
	ec.Record(n.ID, schema.NodeStatusCompleted, input, content)
	return n.Next, nil
}

func (n *Node) executeOutput(ec *ExecContext, input any) ([]*Node, error) {
	ec.CurrentData = input
	ec.Record(n.ID, schema.NodeStatusCompleted, input, map[string]any{"final_output": input})
	return n.Next, nil
}

// fail records a failed history entry for this node. Callers still
// return the error so the scheduler can report it, but enqueue nothing.
func (n *Node) fail(ec *ExecContext, input any, err error) {
	ec.Record(n.ID, schema.NodeStatusFailed, input, map[string]any{"error": err.Error()})
}

func stringifyInput(input any) string {
	if s, ok := input.(string); ok {
		return s
	}
	if encoded, err := json.Marshal(input); err == nil {
		return string(encoded)
	}
	return fmt.Sprintf("%v", input)
}
