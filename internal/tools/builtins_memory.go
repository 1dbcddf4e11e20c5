package tools

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/relaycore/relaycore/internal/store"
	"github.com/relaycore/relaycore/pkg/models"
)

const memoryFileName = "MEMORY.md"

// memoryMu serializes read-modify-write across concurrent memory tool
// calls within a process; cross-process safety comes from store's
// atomic-rename writes.
var memoryMu sync.Mutex

type memoryDoc struct {
	Notes []string `json:"notes"`
}

func memoryPath(workspace string) string {
	return filepath.Join(workspace, memoryFileName+".json")
}

func memoryTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	action := stringArg(args, "action")
	if action == "" {
		action = "read"
	}

	memoryMu.Lock()
	defer memoryMu.Unlock()

	path := memoryPath(tc.Workspace)
	var doc memoryDoc
	store.ReadJSONOrDefault(path, &doc)

	switch action {
	case "read":
		if len(doc.Notes) == 0 {
			return success("(memory is empty)")
		}
		return success(strings.Join(doc.Notes, "\n"))

	case "append":
		note := stringArg(args, "content")
		if note == "" {
			return failure("content is required for append")
		}
		doc.Notes = append(doc.Notes, note)
		if err := store.WriteJSON(path, &doc); err != nil {
			return failure("%s", err.Error())
		}
		return success("memory updated")

	case "clear":
		doc.Notes = nil
		if err := store.WriteJSON(path, &doc); err != nil {
			return failure("%s", err.Error())
		}
		return success("memory cleared")

	default:
		return failure("unknown action %q: expected read, append, or clear", action)
	}
}

// RegisterMemoryTools adds the persistent-memory built-in to reg.
func RegisterMemoryTools(reg *Registry) {
	reg.Register(models.ToolDefinition{
		Name: "memory", Enabled: true,
		Description: "Read, append to, or clear this session's persistent memory notes.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action":  map[string]any{"type": "string", "enum": []string{"read", "append", "clear"}},
				"content": map[string]any{"type": "string"},
			},
		},
	}, ExecutorFunc(memoryTool))
}
