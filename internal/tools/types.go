// Package tools implements the two-tier built-in/MCP tool catalogue: the
// registry of executors, the dispatcher that enforces permission checks,
// timeouts, and the security-violation classifier, and the built-in tool
// families themselves.
//
// Dynamic dispatch over tool kinds is expressed as a single-method
// interface: the dispatcher resolves a name to an Executor at call time
// and never branches on concrete type.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relaycore/relaycore/pkg/models"
)

// Executor is a pure function of (args, ctx) returning a ToolResult. Every
// built-in tool, and the MCP-routed pseudo-executor, implements this.
type Executor interface {
	Execute(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult

func (f ExecutorFunc) Execute(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	return f(ctx, args, tc)
}

// DecodeArgs unmarshals a raw JSON arguments object into a map. Malformed
// or empty input yields an empty map rather than an error — built-in
// executors are required to tolerate missing fields (see RepairArguments
// for the upstream repair cascade that runs before this).
func DecodeArgs(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func intArg(args map[string]any, key string, def int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

func success(output string) models.ToolResult {
	return models.ToolResult{Success: true, Output: output}
}

func failure(format string, args ...any) models.ToolResult {
	return models.ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}
