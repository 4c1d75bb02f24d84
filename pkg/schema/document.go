package schema

// WorkflowDocument is the JSON-serializable workflow format produced by the
// graph editor: a flat node list plus directed edges.
type WorkflowDocument struct {
	Name    string           `json:"name,omitempty"`
	Nodes   []NodeDefinition `json:"nodes"`
	Edges   []EdgeDefinition `json:"edges"`
	Context *DocumentContext `json:"context,omitempty"`
}

// DocumentContext carries workflow-level static data referenced by
// ${context.*} template expressions.
type DocumentContext struct {
	Vars    map[string]any `json:"vars,omitempty"`
	Secrets map[string]any `json:"secrets,omitempty"`
}

// NodeDefinition is one node entry in a workflow document. The outer `type`
// field is editor presentation metadata; the executable variant lives in
// `data.type`.
type NodeDefinition struct {
	ID   string   `json:"id"`
	Type string   `json:"type,omitempty"`
	Data NodeData `json:"data"`
}

// NodeData holds the executable configuration of a node. Variant-specific
// fields are populated only for the variants that use them.
type NodeData struct {
	Type        NodeType `json:"type"`
	Label       string   `json:"label,omitempty"`
	Action      string   `json:"action,omitempty"`
	Description string   `json:"description,omitempty"`

	// Conditional: a literal boolean or an expression string.
	Condition any `json:"condition,omitempty"`

	// Transform: optional expression run by the selected engine.
	Engine     string `json:"engine,omitempty"` // "jq" (default) or "expr"
	Expression string `json:"expression,omitempty"`

	// LLM chat completion settings.
	Model       string        `json:"model,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"maxTokens,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	IP          string        `json:"ip,omitempty"`
	Port        int           `json:"port,omitempty"`
}

// ChatMessage is one entry of an LLM node's static message list.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EdgeDefinition is a directed connection between two nodes. SourceHandle is
// the branch selector consumed by conditional source nodes ("true"/"false",
// case-insensitive); other variants ignore it.
type EdgeDefinition struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// NodeType enumerates the executable node variants.
type NodeType string

const (
	NodeTypeInput       NodeType = "input"
	NodeTypeTransform   NodeType = "transform"
	NodeTypeConditional NodeType = "conditional"
	NodeTypeFanIn       NodeType = "fanIn"
	NodeTypeFanOut      NodeType = "fanOut"
	NodeTypeAPI         NodeType = "api"
	NodeTypeWebhook     NodeType = "webhook"
	NodeTypeLLM         NodeType = "llm"
	NodeTypeOutput      NodeType = "output"
)

// ValidNodeTypes is the closed set of recognized node variants.
var ValidNodeTypes = map[NodeType]bool{
	NodeTypeInput:       true,
	NodeTypeTransform:   true,
	NodeTypeConditional: true,
	NodeTypeFanIn:       true,
	NodeTypeFanOut:      true,
	NodeTypeAPI:         true,
	NodeTypeWebhook:     true,
	NodeTypeLLM:         true,
	NodeTypeOutput:      true,
}
