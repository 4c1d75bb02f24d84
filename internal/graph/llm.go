package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rendis/flowforge/pkg/schema"
)

const (
	defaultLLMTimeout     = 120 * time.Second
	maxLLMResponseBody    = 10 * 1024 * 1024 // 10MB
	chatCompletionsSuffix = "/v1/chat/completions"
)

// LLMConfig carries the process-wide default endpoint for llm nodes.
// Individual nodes may override IP and Port in their document data.
type LLMConfig struct {
	IP      string
	Port    int
	Timeout time.Duration
}

// CompletionSpec is one chat-completion request built from an llm node's
// configuration and the value flowing into it.
type CompletionSpec struct {
	IP          string
	Port        int
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []schema.ChatMessage
}

// LLMClient performs synchronous chat-completion calls for llm nodes.
// A single client is shared across runs.
type LLMClient struct {
	config LLMConfig
	client *http.Client
}

// NewLLMClient creates a client with the given endpoint defaults.
func NewLLMClient(cfg LLMConfig) *LLMClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}
	return &LLMClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Messages    []schema.ChatMessage `json:"messages"`
	Stream      bool                 `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatCompletion posts a chat-completion request and returns the first
// choice's message content. Spec-level IP and Port override the
// configured defaults when set.
func (c *LLMClient) ChatCompletion(ctx context.Context, spec CompletionSpec) (string, error) {
	ip, port := spec.IP, spec.Port
	if ip == "" {
		ip = c.config.IP
	}
	if port == 0 {
		port = c.config.Port
	}
	if ip == "" || port == 0 {
		return "", schema.NewError(schema.ErrCodeValidation, "llm endpoint not configured")
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       spec.Model,
		Temperature: spec.Temperature,
		MaxTokens:   spec.MaxTokens,
		Messages:    spec.Messages,
		Stream:      false,
	})
	if err != nil {
		return "", schema.NewError(schema.ErrCodeExecution, "encode chat completion request: "+err.Error()).WithCause(err)
	}

	url := fmt.Sprintf("http://%s:%d%s", ip, port, chatCompletionsSuffix)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", schema.NewError(schema.ErrCodeExecution, "build chat completion request: "+err.Error()).WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", schema.NewErrorf(schema.ErrCodeExecution, "chat completion call to %s failed: %s", url, err.Error()).WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLLMResponseBody))
	if err != nil {
		return "", schema.NewError(schema.ErrCodeExecution, "read chat completion response: "+err.Error()).WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", schema.NewErrorf(schema.ErrCodeExecution,
			"chat completion returned status %d", resp.StatusCode).
			WithDetails(map[string]any{"body": string(body)})
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", schema.NewError(schema.ErrCodeExecution, "decode chat completion response: "+err.Error()).WithCause(err)
	}
	if len(parsed.Choices) == 0 {
		return "", schema.NewError(schema.ErrCodeExecution, "chat completion response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
