package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relaycore/relaycore/internal/permission"
	"github.com/relaycore/relaycore/internal/session"
	"github.com/relaycore/relaycore/internal/tools"
	"github.com/relaycore/relaycore/pkg/models"
)

// scriptedProvider replays a fixed sequence of completion results, one per
// call, failing the test if the loop asks for more than were scripted.
type scriptedProvider struct {
	t       *testing.T
	results []*CompletionResult
	errs    []error
	calls   int
}

func (p *scriptedProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	i := p.calls
	p.calls++
	if i >= len(p.results) {
		p.t.Fatalf("unexpected completion call #%d, only %d scripted", i+1, len(p.results))
	}
	return p.results[i], p.errs[i]
}

func newTestLoop(t *testing.T, cfg Config, provider LLMProvider) *Loop {
	t.Helper()
	sessions := session.NewManager(t.TempDir(), nil)
	registry := tools.NewRegistry()
	registry.Register(models.ToolDefinition{Name: "leak_secret", Enabled: true}, tools.ExecutorFunc(
		func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
			return models.ToolResult{Success: false, Error: "BLOCKED: secret env access denied"}
		},
	))
	registry.Register(models.ToolDefinition{Name: "echo", Enabled: true}, tools.ExecutorFunc(
		func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
			return models.ToolResult{Success: true, Output: "echoed"}
		},
	))
	perm := permission.New("", nil)
	dispatcher := tools.NewDispatcher(registry, perm, nil)

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	return NewLoop(cfg, sessions, registry, dispatcher, perm, provider, nil, nil)
}

func TestRunReturnsFinalText(t *testing.T) {
	provider := &scriptedProvider{
		t: t,
		results: []*CompletionResult{
			{Content: "Hello there.", FinishReason: "stop"},
		},
		errs: []error{nil},
	}
	loop := newTestLoop(t, Config{MaxIterations: 5}, provider)

	reply, err := loop.Run(context.Background(), "user1", "chat1", "hi", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != "Hello there." {
		t.Errorf("reply = %q, want %q", reply, "Hello there.")
	}
}

func TestRunStripsResponseTags(t *testing.T) {
	provider := &scriptedProvider{
		t: t,
		results: []*CompletionResult{
			{Content: "<thinking>scratch work</thinking><response>the answer</response>", FinishReason: "stop"},
		},
		errs: []error{nil},
	}
	loop := newTestLoop(t, Config{MaxIterations: 5}, provider)

	reply, err := loop.Run(context.Background(), "user1", "chat1", "hi", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != "the answer" {
		t.Errorf("reply = %q, want %q", reply, "the answer")
	}
}

func TestRunUsesToolResultThenFinalText(t *testing.T) {
	provider := &scriptedProvider{
		t: t,
		results: []*CompletionResult{
			{ToolCalls: []models.ToolCall{{ID: "call_1", Name: "echo", Arguments: []byte(`{}`)}}},
			{Content: "done", FinishReason: "stop"},
		},
		errs: []error{nil, nil},
	}
	loop := newTestLoop(t, Config{MaxIterations: 5}, provider)

	reply, err := loop.Run(context.Background(), "user1", "chat1", "echo something", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != "done" {
		t.Errorf("reply = %q, want %q", reply, "done")
	}
	if provider.calls != 2 {
		t.Errorf("provider.calls = %d, want 2", provider.calls)
	}
}

func TestRunFallsBackToToolSummaryOnIterationCap(t *testing.T) {
	toolCall := models.ToolCall{ID: "call_1", Name: "echo", Arguments: []byte(`{}`)}
	provider := &scriptedProvider{
		t: t,
		results: []*CompletionResult{
			{ToolCalls: []models.ToolCall{toolCall}},
			{ToolCalls: []models.ToolCall{toolCall}},
		},
		errs: []error{nil, nil},
	}
	loop := newTestLoop(t, Config{MaxIterations: 2}, provider)

	reply, err := loop.Run(context.Background(), "user1", "chat1", "keep going", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != "echoed" {
		t.Errorf("reply = %q, want fallback summary %q", reply, "echoed")
	}
}

func TestRunSurfacesTransportErrorAsText(t *testing.T) {
	provider := &scriptedProvider{
		t:       t,
		results: []*CompletionResult{nil},
		errs:    []error{errors.New("connection refused")},
	}
	loop := newTestLoop(t, Config{MaxIterations: 5}, provider)

	reply, err := loop.Run(context.Background(), "user1", "chat1", "hi", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("Run() returned a Go error instead of surfacing transport failure as text: %v", err)
	}
	if reply == "" {
		t.Error("expected non-empty transport-error text")
	}
}

func TestSecurityCapLocksSessionAcrossTurns(t *testing.T) {
	violatingCall := models.ToolCall{ID: "call_1", Name: "leak_secret", Arguments: []byte(`{}`)}
	provider := &scriptedProvider{
		t: t,
		results: []*CompletionResult{
			{ToolCalls: []models.ToolCall{violatingCall}},
			{ToolCalls: []models.ToolCall{violatingCall}},
		},
		errs: []error{nil, nil},
	}
	loop := newTestLoop(t, Config{MaxIterations: 10, SecurityCap: 2}, provider)

	reply, err := loop.Run(context.Background(), "user1", "chat1", "leak it", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != lockMessage {
		t.Errorf("first-turn reply = %q, want lock message", reply)
	}
	if provider.calls != 2 {
		t.Fatalf("provider.calls = %d, want 2 (cap tripped on the 2nd violation)", provider.calls)
	}

	reply2, err := loop.Run(context.Background(), "user1", "chat1", "try again", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if reply2 != lockMessage {
		t.Errorf("second-turn reply = %q, want lock message", reply2)
	}
	if provider.calls != 2 {
		t.Errorf("provider.calls after locked turn = %d, want still 2 (no LLM call once locked)", provider.calls)
	}
}

func TestClearResetsSecurityLock(t *testing.T) {
	violatingCall := models.ToolCall{ID: "call_1", Name: "leak_secret", Arguments: []byte(`{}`)}
	provider := &scriptedProvider{
		t: t,
		results: []*CompletionResult{
			{ToolCalls: []models.ToolCall{violatingCall}},
			{Content: "fresh start", FinishReason: "stop"},
		},
		errs: []error{nil, nil},
	}
	loop := newTestLoop(t, Config{MaxIterations: 10, SecurityCap: 1}, provider)

	reply, err := loop.Run(context.Background(), "user1", "chat1", "leak it", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if reply != lockMessage {
		t.Fatalf("reply = %q, want lock message", reply)
	}

	loop.sessions.Clear("user1", "chat1")

	reply2, err := loop.Run(context.Background(), "user1", "chat1", "hi again", "alice", models.ChatPrivate, models.SourceBot)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if reply2 != "fresh start" {
		t.Errorf("reply after /clear = %q, want %q", reply2, "fresh start")
	}
}
