package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/relaycore/relaycore/internal/agent"
	"github.com/relaycore/relaycore/pkg/models"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint
// (base URL and model are both configured, not hardcoded to api.openai.com).
type OpenAIProvider struct {
	client BaseProvider
	oai    *openai.Client
}

// NewOpenAIProvider builds a provider pointed at baseURL with apiKey. An
// empty baseURL falls back to the SDK's default (api.openai.com).
func NewOpenAIProvider(baseURL, apiKey string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: NewBaseProvider("openai-compatible", 3, time.Second),
		oai:    openai.NewClientWithConfig(cfg),
	}
}

// Complete issues a single, non-streaming chat completion and returns the
// first choice's message, retrying transient failures with linear backoff.
func (p *OpenAIProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionResult, error) {
	if p.oai == nil {
		return nil, errors.New("llm provider not configured: missing api key")
	}

	wire := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: convertMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		wire.MaxTokens = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		wire.Tools = convertTools(req.Tools)
		wire.ToolChoice = "auto"
	}

	var resp openai.ChatCompletionResponse
	err := p.client.Retry(ctx, IsRetryable, func() error {
		var callErr error
		resp, callErr = p.oai.CreateChatCompletion(ctx, wire)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion: empty choices")
	}

	choice := resp.Choices[0]
	return &agent.CompletionResult{
		Content:          choice.Message.Content,
		ReasoningContent: choice.Message.ReasoningContent,
		ToolCalls:        convertToolCalls(choice.Message.ToolCalls),
		FinishReason:     string(choice.FinishReason),
	}, nil
}

func convertMessages(messages []agent.CompletionMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		wm := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
		if m.Role == openai.ChatMessageRoleTool {
			wm.ToolCallID = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			wm.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				wm.ToolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
		}
		out = append(out, wm)
	}
	return out
}

func convertTools(tools []agent.ToolSpec) []openai.Tool {
	out := make([]openai.Tool, len(tools))
	for i, t := range tools {
		params := t.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		}
	}
	return out
}

func convertToolCalls(calls []openai.ToolCall) []models.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]models.ToolCall, len(calls))
	for i, tc := range calls {
		out[i] = models.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		}
	}
	return out
}
