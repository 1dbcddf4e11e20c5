package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/relaycore/relaycore/internal/store"
	"github.com/relaycore/relaycore/pkg/models"
)

// manage_tasks is the agent's personal todo list, a plain checklist kept
// per session workspace. It is distinct from the scheduler's durable
// timers (schedule_task), which fire independently of any open session.
const todoFileName = "TODO.json"

var todoMu sync.Mutex

type todoItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

type todoDoc struct {
	Items []todoItem `json:"items"`
}

func todoPath(workspace string) string {
	return filepath.Join(workspace, todoFileName)
}

func manageTasksTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	action := stringArg(args, "action")
	if action == "" {
		action = "list"
	}

	todoMu.Lock()
	defer todoMu.Unlock()

	path := todoPath(tc.Workspace)
	var doc todoDoc
	store.ReadJSONOrDefault(path, &doc)

	switch action {
	case "list":
		return success(renderTodo(doc))

	case "add":
		text := stringArg(args, "text")
		if text == "" {
			return failure("text is required for add")
		}
		doc.Items = append(doc.Items, todoItem{ID: uuid.NewString(), Text: text})
		if err := store.WriteJSON(path, &doc); err != nil {
			return failure("%s", err.Error())
		}
		return success(renderTodo(doc))

	case "complete":
		id := stringArg(args, "id")
		found := false
		for i := range doc.Items {
			if doc.Items[i].ID == id {
				doc.Items[i].Done = true
				found = true
				break
			}
		}
		if !found {
			return failure("no task with id %q", id)
		}
		if err := store.WriteJSON(path, &doc); err != nil {
			return failure("%s", err.Error())
		}
		return success(renderTodo(doc))

	case "clear":
		doc.Items = nil
		if err := store.WriteJSON(path, &doc); err != nil {
			return failure("%s", err.Error())
		}
		return success("tasks cleared")

	default:
		return failure("unknown action %q: expected list, add, complete, or clear", action)
	}
}

func renderTodo(doc todoDoc) string {
	if len(doc.Items) == 0 {
		return "(no tasks)"
	}
	var b strings.Builder
	for _, it := range doc.Items {
		mark := " "
		if it.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %s (%s)\n", mark, it.Text, it.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RegisterTaskTools adds the personal todo-list built-in to reg.
func RegisterTaskTools(reg *Registry) {
	reg.Register(models.ToolDefinition{
		Name: "manage_tasks", Enabled: true,
		Description: "Manage a personal checklist for this session: list, add, complete, or clear items.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{"type": "string", "enum": []string{"list", "add", "complete", "clear"}},
				"text":   map[string]any{"type": "string"},
				"id":     map[string]any{"type": "string"},
			},
		},
	}, ExecutorFunc(manageTasksTool))
}
