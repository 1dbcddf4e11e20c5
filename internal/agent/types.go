package agent

import (
	"context"

	"github.com/relaycore/relaycore/pkg/models"
)

// CompletionMessage is one entry of the wire-format messages array sent to
// the LLM proxy, per the OpenAI-compatible chat completions contract.
type CompletionMessage struct {
	Role       string
	Content    string
	ToolCalls  []models.ToolCall
	ToolCallID string
}

// ToolSpec is the wire-format description of one callable function, built
// from a models.ToolDefinition.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// CompletionRequest is everything needed to make one outbound LLM call.
type CompletionRequest struct {
	Model     string
	Messages  []CompletionMessage
	Tools     []ToolSpec
	MaxTokens int
}

// CompletionResult is the first choice's assistant message from a single,
// non-streaming chat completion.
type CompletionResult struct {
	Content          string
	ReasoningContent string
	ToolCalls        []models.ToolCall
	FinishReason     string
}

// LLMProvider abstracts the OpenAI-compatible wire client so the loop
// never depends on a concrete SDK type.
type LLMProvider interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)
}

// toolSpecsFromDefinitions converts the dispatcher's tool catalogue into
// the wire-format function specs sent with every completion request.
func toolSpecsFromDefinitions(defs []models.ToolDefinition) []ToolSpec {
	specs := make([]ToolSpec, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, ToolSpec{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}
	return specs
}
