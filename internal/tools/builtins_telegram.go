package tools

import (
	"context"

	"github.com/relaycore/relaycore/pkg/models"
)

// telegramAction builds a userbot-gated executor that POSTs to the
// userbot adapter's /telegram/<action> endpoint. These tools are only
// ever reachable when the permission resolver's EffectiveType resolves to
// "userbot" (source == userbot); that gate lives in internal/permission,
// not here, so the executor itself stays a thin wire adapter.
func telegramAction(adapter *AdapterClient, action string, required ...string) Executor {
	return ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		if !adapter.configured() {
			return failure("adapter not configured")
		}
		for _, key := range required {
			if stringArg(args, key) == "" {
				return failure("%s is required", key)
			}
		}
		payload := map[string]any{}
		for k, v := range args {
			payload[k] = v
		}
		resp, err := adapter.post(ctx, "/telegram/"+action, payload)
		if err != nil {
			return failure("%s", err.Error())
		}
		if text, ok := resp["result"].(string); ok && text != "" {
			return success(text)
		}
		return success("ok")
	})
}

// RegisterTelegramTools adds the userbot-gated Telegram tool family to reg.
func RegisterTelegramTools(reg *Registry, adapter *AdapterClient) {
	specs := []struct {
		name, desc, action string
		required           []string
		params             map[string]any
	}{
		{"telegram_channel", "Fetch metadata about a Telegram channel.", "channel",
			[]string{"channel"}, map[string]any{"channel": map[string]any{"type": "string"}}},
		{"telegram_join", "Join a Telegram channel or group by invite link or username.", "join",
			[]string{"target"}, map[string]any{"target": map[string]any{"type": "string"}}},
		{"telegram_send", "Send a message as the userbot account.", "send",
			[]string{"chat", "text"}, map[string]any{
				"chat": map[string]any{"type": "string"}, "text": map[string]any{"type": "string"},
			}},
		{"telegram_history", "Fetch recent message history from a chat.", "history",
			[]string{"chat"}, map[string]any{
				"chat": map[string]any{"type": "string"}, "limit": map[string]any{"type": "integer"},
			}},
		{"telegram_dialogs", "List the userbot account's open dialogs.", "dialogs",
			nil, map[string]any{"limit": map[string]any{"type": "integer"}}},
		{"telegram_delete", "Delete a message sent by the userbot account.", "delete",
			[]string{"chat", "message_id"}, map[string]any{
				"chat": map[string]any{"type": "string"}, "message_id": map[string]any{"type": "string"},
			}},
		{"telegram_edit", "Edit a message sent by the userbot account.", "edit",
			[]string{"chat", "message_id", "text"}, map[string]any{
				"chat": map[string]any{"type": "string"}, "message_id": map[string]any{"type": "string"},
				"text": map[string]any{"type": "string"},
			}},
		{"telegram_resolve", "Resolve a username or invite link to a chat identifier.", "resolve",
			[]string{"target"}, map[string]any{"target": map[string]any{"type": "string"}}},
	}

	for _, s := range specs {
		reg.Register(models.ToolDefinition{
			Name: s.name, Enabled: true,
			Description: s.desc,
			Parameters: map[string]any{
				"type":       "object",
				"properties": s.params,
				"required":   s.required,
			},
		}, telegramAction(adapter, s.action, s.required...))
	}
}
