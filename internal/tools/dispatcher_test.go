package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/relaycore/relaycore/internal/permission"
	"github.com/relaycore/relaycore/pkg/models"
)

func testTC(chatType models.ChatType, source models.Source) models.ToolContext {
	return models.ToolContext{ChatType: chatType, Source: source}
}

func TestDispatcherPermissionDenied(t *testing.T) {
	reg := NewRegistry()
	reg.Register(models.ToolDefinition{Name: "send_dm", Enabled: true}, ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		return success("should not run")
	}))
	d := NewDispatcher(reg, permission.New("", nil), nil)

	dr := d.Execute(context.Background(), "send_dm", json.RawMessage(`{}`), testTC(models.ChatGroup, models.SourceBot))
	if dr.Result.Success {
		t.Fatalf("expected denial for send_dm in group session")
	}
	want := "🔒 Tool 'send_dm' not available in group sessions."
	if dr.Result.Error != want {
		t.Fatalf("got error %q want %q", dr.Result.Error, want)
	}
}

func TestDispatcherUnknownTool(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg, permission.New("", nil), nil)

	dr := d.Execute(context.Background(), "does_not_exist", json.RawMessage(`{}`), testTC(models.ChatPrivate, models.SourceBot))
	if dr.Result.Success {
		t.Fatalf("expected failure for unknown tool")
	}
}

func TestDispatcherSuccessAndSecurityViolation(t *testing.T) {
	reg := NewRegistry()
	reg.Register(models.ToolDefinition{Name: "run_command", Enabled: true}, ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		return failure("BLOCKED: attempt to read secret env")
	}))
	d := NewDispatcher(reg, permission.New("", nil), nil)

	dr := d.Execute(context.Background(), "run_command", json.RawMessage(`{}`), testTC(models.ChatPrivate, models.SourceBot))
	if dr.Result.Success {
		t.Fatalf("expected tool failure result")
	}
	if !dr.SecurityViolation {
		t.Fatalf("expected security violation to be classified")
	}
}

func TestDispatcherNonViolationFailureNotFlagged(t *testing.T) {
	reg := NewRegistry()
	reg.Register(models.ToolDefinition{Name: "read_file", Enabled: true}, ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		return failure("file not found")
	}))
	d := NewDispatcher(reg, permission.New("", nil), nil)

	dr := d.Execute(context.Background(), "read_file", json.RawMessage(`{}`), testTC(models.ChatPrivate, models.SourceBot))
	if dr.SecurityViolation {
		t.Fatalf("plain failure must not be classified as a security violation")
	}
}

func TestDispatcherLogsSchemaValidationFailure(t *testing.T) {
	reg := NewRegistry()
	reg.Register(models.ToolDefinition{
		Name: "read_file", Enabled: true,
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
			"required":   []string{"path"},
		},
	}, ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		return success("ran anyway")
	}))
	d := NewDispatcher(reg, permission.New("", nil), nil)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	dr := d.Execute(context.Background(), "read_file", json.RawMessage(`{}`), testTC(models.ChatPrivate, models.SourceBot))
	if !dr.Result.Success {
		t.Fatalf("expected the executor to still run despite the schema mismatch, got %+v", dr.Result)
	}
	if !bytes.Contains(buf.Bytes(), []byte("schema validation")) {
		t.Fatalf("expected a schema validation warning to be logged, got: %s", buf.String())
	}
}

func TestParseMCPNameDescendingLength(t *testing.T) {
	servers := []string{"docker", "docker_compose"}
	server, tool, ok := parseMCPName("mcp_docker_compose_up", servers)
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if server != "docker_compose" || tool != "up" {
		t.Fatalf("got server=%q tool=%q, want docker_compose/up", server, tool)
	}
}

func TestParseMCPNameSimple(t *testing.T) {
	server, tool, ok := parseMCPName("mcp_docker_ps", []string{"docker"})
	if !ok || server != "docker" || tool != "ps" {
		t.Fatalf("got server=%q tool=%q ok=%v", server, tool, ok)
	}
}

type fakeMCP struct {
	names []string
	calls int
}

func (f *fakeMCP) ServerNames() []string { return f.names }
func (f *fakeMCP) Call(ctx context.Context, server, tool string, args map[string]any) (models.ToolResult, error) {
	f.calls++
	return success("ok:" + server + ":" + tool), nil
}

func TestDispatcherRoutesToMCP(t *testing.T) {
	reg := NewRegistry()
	mcp := &fakeMCP{names: []string{"docker"}}
	d := NewDispatcher(reg, permission.New("", nil), mcp)

	dr := d.Execute(context.Background(), "mcp_docker_ps", json.RawMessage(`{"all":true}`), testTC(models.ChatPrivate, models.SourceBot))
	if !dr.Result.Success || dr.Result.Output != "ok:docker:ps" {
		t.Fatalf("unexpected MCP dispatch result: %+v", dr.Result)
	}
	if mcp.calls != 1 {
		t.Fatalf("expected exactly one MCP call, got %d", mcp.calls)
	}
}
