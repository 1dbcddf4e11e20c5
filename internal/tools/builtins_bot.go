package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relaycore/relaycore/pkg/models"
)

// askUserPollInterval is how often ask_user polls the adapter's
// GET /answer/{question_id} endpoint while waiting for a reply.
const askUserPollInterval = 2 * time.Second

func sendDMTool(adapter *AdapterClient) Executor {
	return ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		if !adapter.configured() {
			return failure("adapter not configured")
		}
		userID := stringArg(args, "user_id")
		text := stringArg(args, "text")
		if userID == "" || text == "" {
			return failure("user_id and text are required")
		}
		if _, err := adapter.post(ctx, "/send_dm", map[string]any{"user_id": userID, "text": text}); err != nil {
			return failure("%s", err.Error())
		}
		return success("sent")
	})
}

func sendFileTool(adapter *AdapterClient) Executor {
	return ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		if !adapter.configured() {
			return failure("adapter not configured")
		}
		path, err := resolvePath(tc.Workspace, stringArg(args, "path"))
		if err != nil {
			return failure("BLOCKED: %s", err.Error())
		}
		if _, err := adapter.post(ctx, "/send_file", map[string]any{
			"chat_id": tc.ChatID,
			"path":    path,
		}); err != nil {
			return failure("%s", err.Error())
		}
		return success("file sent")
	})
}

func manageMessageTool(adapter *AdapterClient) Executor {
	return ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		if !adapter.configured() {
			return failure("adapter not configured")
		}
		action := stringArg(args, "action")
		var path string
		switch action {
		case "edit":
			path = "/edit"
		case "delete":
			path = "/delete"
		default:
			return failure("unknown action %q: expected edit or delete", action)
		}
		if _, err := adapter.post(ctx, path, map[string]any{
			"chat_id":    tc.ChatID,
			"message_id": stringArg(args, "message_id"),
			"text":       stringArg(args, "text"),
		}); err != nil {
			return failure("%s", err.Error())
		}
		return success(action + "d")
	})
}

// askUserTool POSTs the question, then polls the adapter's answer endpoint
// until a reply lands or the dispatch deadline expires — the loop's
// suspension point named in the component design. A poll that returns no
// answer or an error is retried on the next tick.
func askUserTool(adapter *AdapterClient) Executor {
	return ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		if !adapter.configured() {
			return failure("adapter not configured")
		}
		question := stringArg(args, "question")
		if question == "" {
			return failure("question is required")
		}
		questionID := uuid.NewString()
		if _, err := adapter.post(ctx, "/ask", map[string]any{
			"question_id": questionID,
			"chat_id":     tc.ChatID,
			"user_id":     tc.UserID,
			"question":    question,
		}); err != nil {
			return failure("%s", err.Error())
		}

		ticker := time.NewTicker(askUserPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return failure("timed out waiting for a reply")
			case <-ticker.C:
				resp, err := adapter.get(ctx, fmt.Sprintf("/answer/%s", questionID))
				if err != nil {
					continue
				}
				if answer, ok := resp["answer"].(string); ok && answer != "" {
					return success(answer)
				}
			}
		}
	})
}

// RegisterBotTools adds the bot-only tool family (send_file, send_dm,
// manage_message, ask_user) to reg, wired against adapter. Under the
// permission resolver's defaults all four are allowed in "main" sessions,
// send_file and ask_user in "group" sessions, and none in "sandbox" or
// "userbot" sessions; registering them unconditionally keeps the
// catalogue complete and lets the permission layer be the single source
// of truth for visibility.
func RegisterBotTools(reg *Registry, adapter *AdapterClient) {
	reg.Register(models.ToolDefinition{
		Name: "send_dm", Enabled: true,
		Description: "Send a direct message to a user via the chat adapter.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_id": map[string]any{"type": "string"},
				"text":    map[string]any{"type": "string"},
			},
			"required": []string{"user_id", "text"},
		},
	}, sendDMTool(adapter))

	reg.Register(models.ToolDefinition{
		Name: "send_file", Enabled: true,
		Description: "Send a workspace file to the current chat via the chat adapter.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
			"required":   []string{"path"},
		},
	}, sendFileTool(adapter))

	reg.Register(models.ToolDefinition{
		Name: "manage_message", Enabled: true,
		Description: "Edit or delete a previously sent message via the chat adapter.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action":     map[string]any{"type": "string", "enum": []string{"edit", "delete"}},
				"message_id": map[string]any{"type": "string"},
				"text":       map[string]any{"type": "string"},
			},
			"required": []string{"action", "message_id"},
		},
	}, manageMessageTool(adapter))

	reg.Register(models.ToolDefinition{
		Name: "ask_user", Enabled: true,
		Description: "Ask the user a clarifying question and wait for their reply.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"question": map[string]any{"type": "string"}},
			"required":   []string{"question"},
		},
	}, askUserTool(adapter))
}
