package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relaycore/relaycore/internal/scheduler"
	"github.com/relaycore/relaycore/pkg/models"
)

func renderTasks(list []models.Task) string {
	if len(list) == 0 {
		return "(no scheduled tasks)"
	}
	var b strings.Builder
	for _, t := range list {
		status := "enabled"
		if !t.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(&b, "%s: %q at %s (%s)\n", t.ID, t.Content, time.Unix(t.ExecuteAt, 0).Format(time.RFC3339), status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func scheduleTaskTool(store *scheduler.Store) Executor {
	return ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		action := stringArg(args, "action")
		if action == "" {
			action = "list"
		}

		switch action {
		case "list":
			return success(renderTasks(store.ListForUser(tc.UserID)))

		case "add":
			content := stringArg(args, "content")
			if content == "" {
				return failure("content is required for add")
			}
			at := intArg(args, "in_minutes", 0)
			taskType := models.TaskMessage
			if stringArg(args, "type") == "agent" {
				taskType = models.TaskAgent
			}
			t := models.Task{
				UserID:          tc.UserID,
				ChatID:          tc.ChatID,
				Source:          tc.Source,
				TaskType:        taskType,
				Content:         content,
				ExecuteAt:       time.Now().Add(time.Duration(at) * time.Minute).Unix(),
				Recurring:       boolArg(args, "recurring", false),
				IntervalMinutes: intArg(args, "interval_minutes", 0),
				CronExpression:  stringArg(args, "cron_expression"),
			}
			added, err := store.Add(t)
			if err != nil {
				return failure("%s", err.Error())
			}
			return success(fmt.Sprintf("scheduled %s", added.ID))

		case "cancel":
			id := stringArg(args, "id")
			if id == "" {
				return failure("id is required for cancel")
			}
			if err := store.Cancel(id); err != nil {
				return failure("%s", err.Error())
			}
			return success("cancelled " + id)

		case "run":
			id := stringArg(args, "id")
			t, ok := store.Get(id)
			if !ok {
				return failure("no task with id %q", id)
			}
			t.ExecuteAt = time.Now().Unix()
			if err := store.Update(t); err != nil {
				return failure("%s", err.Error())
			}
			return success("will run on next tick")

		default:
			return failure("unknown action %q: expected list, add, cancel, or run", action)
		}
	})
}

// RegisterScheduleTool adds schedule_task to reg, bound to the durable
// task store. A nil store leaves the tool permanently reporting failure
// rather than panicking, so a reduced tool catalogue doesn't crash.
func RegisterScheduleTool(reg *Registry, store *scheduler.Store) {
	var exec Executor
	if store == nil {
		exec = ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
			return failure("scheduler not configured")
		})
	} else {
		exec = scheduleTaskTool(store)
	}

	reg.Register(models.ToolDefinition{
		Name: "schedule_task", Enabled: true,
		Description: "Manage persistent scheduled tasks: add, list, cancel, or run now.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action":           map[string]any{"type": "string", "enum": []string{"list", "add", "cancel", "run"}},
				"content":          map[string]any{"type": "string"},
				"type":             map[string]any{"type": "string", "enum": []string{"message", "agent"}},
				"in_minutes":       map[string]any{"type": "integer"},
				"recurring":        map[string]any{"type": "boolean"},
				"interval_minutes": map[string]any{"type": "integer"},
				"cron_expression":  map[string]any{"type": "string"},
				"id":               map[string]any{"type": "string"},
			},
		},
	}, exec)
}
