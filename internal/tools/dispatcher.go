package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/relaycore/relaycore/internal/permission"
	"github.com/relaycore/relaycore/pkg/models"
)

// DefaultToolTimeout is the hard deadline applied to every built-in and
// MCP-routed tool execution unless overridden.
const DefaultToolTimeout = 120 * time.Second

// DefaultOutputCap bounds a tool's output before TrimOutput kicks in.
const DefaultOutputCap = 8000

// MCPCaller is the subset of the MCP bridge the dispatcher depends on, so
// this package never imports internal/mcp directly (mcp imports tools'
// models only, avoiding an import cycle).
type MCPCaller interface {
	ServerNames() []string
	Call(ctx context.Context, server, tool string, args map[string]any) (models.ToolResult, error)
}

// Dispatcher resolves a tool name to an executor (built-in or MCP-routed),
// enforces the permission check, a hard deadline, and the security
// violation classifier, per the ordered semantics in the component design.
type Dispatcher struct {
	registry   *Registry
	permission *permission.Resolver
	mcp        MCPCaller
	timeout    time.Duration
	outputCap  int
}

// NewDispatcher builds a Dispatcher. mcp may be nil if no MCP servers are
// configured; mcp_-prefixed tool calls then fail with "server not found".
func NewDispatcher(registry *Registry, resolver *permission.Resolver, mcp MCPCaller) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		permission: resolver,
		mcp:        mcp,
		timeout:    DefaultToolTimeout,
		outputCap:  DefaultOutputCap,
	}
}

// SetTimeout overrides the per-call deadline applied to every built-in and
// MCP-routed execution. Ignored if d is nil or timeout is non-positive.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	if d == nil || timeout <= 0 {
		return
	}
	d.timeout = timeout
}

// SetOutputCap overrides the output-size cap applied before TrimOutput.
// Ignored if d is nil or cap is non-positive.
func (d *Dispatcher) SetOutputCap(cap int) {
	if d == nil || cap <= 0 {
		return
	}
	d.outputCap = cap
}

// Execute runs one tool call end to end: permission check, MCP-prefix
// routing or built-in lookup, deadline enforcement, and the
// security-violation classifier that increments tc-associated session
// counters (the caller is responsible for applying the returned
// SecurityViolation flag to its session).
type DispatchResult struct {
	Result            models.ToolResult
	SecurityViolation bool
}

func (d *Dispatcher) Execute(ctx context.Context, name string, argsRaw json.RawMessage, tc models.ToolContext) DispatchResult {
	// 1. Permission check.
	check := d.permission.Check(name, tc.ChatType, tc.Source)
	if !check.Allowed {
		msg := fmt.Sprintf("🔒 Tool '%s' not available in %s sessions.", name, check.EffectiveType)
		return DispatchResult{Result: models.ToolResult{Success: false, Error: msg}}
	}

	args := DecodeArgs(argsRaw)
	validateAgainstSchema(d.registry, name, args)

	var result models.ToolResult
	var execErr error

	execCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if strings.HasPrefix(name, "mcp_") {
		result, execErr = d.executeMCP(execCtx, name, args)
	} else {
		reg, ok := d.registry.Get(name)
		if !ok {
			result = failure("unknown tool %q", name)
		} else {
			result = runWithDeadline(execCtx, reg.Executor, args, tc)
		}
	}

	if execErr != nil {
		if execCtx.Err() != nil {
			result = failure("tool %q timed out after %s", name, d.timeout)
		} else {
			result = failure("%s", execErr.Error())
		}
	}

	if len(result.Output) > d.outputCap {
		result.Output = TrimOutput(result.Output, d.outputCap)
	}

	violation := false
	if !result.Success && ClassifySecurityViolation(result.Error) {
		violation = true
	}

	return DispatchResult{Result: result, SecurityViolation: violation}
}

// runWithDeadline executes exec and returns its result, or a timeout
// failure if execCtx's deadline expires first. It never leaks a goroutine
// indefinitely: the executor is expected to honor ctx, but even if it
// doesn't, this function returns as soon as the deadline fires.
func runWithDeadline(execCtx context.Context, exec Executor, args map[string]any, tc models.ToolContext) models.ToolResult {
	done := make(chan models.ToolResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- failure("panic in tool executor: %v", r)
			}
		}()
		done <- exec.Execute(execCtx, args, tc)
	}()

	select {
	case res := <-done:
		return res
	case <-execCtx.Done():
		return failure("execution deadline exceeded")
	}
}

// parseMCPName splits a "mcp_<server>_<tool>" name against the known
// server names, trying them in descending length order to resolve the
// ambiguous underscore boundary when a server name itself contains
// underscores, per the design note.
func parseMCPName(name string, serverNames []string) (server, tool string, ok bool) {
	rest := strings.TrimPrefix(name, "mcp_")
	if rest == name {
		return "", "", false
	}

	candidates := append([]string(nil), serverNames...)
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })

	for _, srv := range candidates {
		prefix := srv + "_"
		if strings.HasPrefix(rest, prefix) {
			return srv, strings.TrimPrefix(rest, prefix), true
		}
	}
	return "", "", false
}

func (d *Dispatcher) executeMCP(ctx context.Context, name string, args map[string]any) (models.ToolResult, error) {
	if d.mcp == nil {
		return failure("MCP server not found for %q", name), nil
	}
	server, tool, ok := parseMCPName(name, d.mcp.ServerNames())
	if !ok {
		return failure("could not resolve MCP server for tool %q", name), nil
	}
	return d.mcp.Call(ctx, server, tool, args)
}

// validateAgainstSchema validates args against the tool's declared JSON
// Schema when present. A mismatch is logged but not fatal: schema
// mismatch is a Parse-failure, not a hard error — the executor still
// runs and is expected to report its own error for missing required
// fields.
func validateAgainstSchema(reg *Registry, name string, args map[string]any) {
	t, ok := reg.Get(name)
	if !ok || t.Definition.Parameters == nil {
		return
	}
	schemaBytes, err := json.Marshal(t.Definition.Parameters)
	if err != nil {
		return
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name+".json", toReader(schemaBytes)); err != nil {
		return
	}
	schema, err := compiler.Compile(name + ".json")
	if err != nil {
		return
	}
	if err := schema.Validate(map[string]any(args)); err != nil {
		slog.Default().Warn("tool arguments failed schema validation", "tool", name, "error", err)
	}
}

func toReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
