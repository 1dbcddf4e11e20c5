package tools

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/relaycore/relaycore/pkg/models"
)

// MaxCommandOutput bounds what run_command returns before the dispatcher's
// own TrimOutput pass runs. The cut is made after the command exits; the
// full combined output is buffered in memory while it runs.
const MaxCommandOutput = 64 * 1024

// runCommandTool shells out locally. A sandboxed command-execution
// container is an out-of-scope external collaborator addressed only at its
// HTTP interface; this local executor is the one registered for
// run_command, and no sandbox-backed Executor is wired in its place.
func runCommandTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	command := stringArg(args, "command")
	if command == "" {
		return failure("command is required")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = tc.Workspace

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	output := out.String()
	if len(output) > MaxCommandOutput {
		output = output[:MaxCommandOutput]
	}

	if err != nil {
		if ctx.Err() != nil {
			return failure("command timed out")
		}
		return models.ToolResult{Success: false, Output: output, Error: err.Error()}
	}
	return success(output)
}

// RegisterExecTools adds the command-execution built-in to reg.
func RegisterExecTools(reg *Registry) {
	reg.Register(models.ToolDefinition{
		Name: "run_command", Enabled: true,
		Description: "Run a shell command in the session workspace and return its combined output.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"command": map[string]any{"type": "string"}},
			"required":   []string{"command"},
		},
	}, ExecutorFunc(runCommandTool))
}
