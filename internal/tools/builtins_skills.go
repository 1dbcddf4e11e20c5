package tools

import (
	"context"
	"strings"

	"github.com/relaycore/relaycore/pkg/models"
)

// SkillsEndpoint points at an external skill-package registry. Empty
// disables install_skill/list_skills rather than faking a catalogue.
var SkillsEndpoint string

func listSkillsTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	if SkillsEndpoint == "" {
		return failure("no skills registry configured")
	}
	client := NewAdapterClient(SkillsEndpoint)
	resp, err := client.get(ctx, "/skills")
	if err != nil {
		return failure("%s", err.Error())
	}
	if names, ok := resp["skills"].([]any); ok {
		var out []string
		for _, n := range names {
			if s, ok := n.(string); ok {
				out = append(out, s)
			}
		}
		return success(strings.Join(out, "\n"))
	}
	return success("(no skills installed)")
}

func installSkillTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	if SkillsEndpoint == "" {
		return failure("no skills registry configured")
	}
	name := stringArg(args, "name")
	if name == "" {
		return failure("name is required")
	}
	client := NewAdapterClient(SkillsEndpoint)
	if _, err := client.post(ctx, "/skills/install", map[string]any{"name": name}); err != nil {
		return failure("%s", err.Error())
	}
	return success("installed " + name)
}

// FetchSkillMentions queries endpoint's /skills and formats a short
// mention block for the system prompt's {{skills}} placeholder: one line
// per installed skill. Returns "" (and a nil error) when endpoint is
// empty, so prompt building never needs to special-case "not configured".
func FetchSkillMentions(ctx context.Context, endpoint string) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	client := NewAdapterClient(endpoint)
	resp, err := client.get(ctx, "/skills")
	if err != nil {
		return "", err
	}
	names, _ := resp["skills"].([]any)
	if len(names) == 0 {
		return "", nil
	}
	var lines []string
	for _, n := range names {
		if s, ok := n.(string); ok && s != "" {
			lines = append(lines, "- "+s)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// RegisterSkillTools adds install_skill and list_skills to reg.
func RegisterSkillTools(reg *Registry) {
	reg.Register(models.ToolDefinition{
		Name: "list_skills", Enabled: true,
		Description: "List installed skill packages available to the agent.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}, ExecutorFunc(listSkillsTool))

	reg.Register(models.ToolDefinition{
		Name: "install_skill", Enabled: true,
		Description: "Install a skill package by name from the configured skills registry.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"name": map[string]any{"type": "string"}},
			"required":   []string{"name"},
		},
	}, ExecutorFunc(installSkillTool))
}
