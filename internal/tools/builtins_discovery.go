package tools

import (
	"context"
	"sort"
	"strings"

	"github.com/relaycore/relaycore/pkg/models"
)

// RegisterDiscoveryTools adds search_tools and load_tools, the two
// executors that let the agent expand beyond the fixed base tool subset
// under lazy loading. Both close over reg since an Executor's signature
// carries only (args, ctx).
func RegisterDiscoveryTools(reg *Registry) {
	reg.Register(models.ToolDefinition{
		Name: "search_tools", Enabled: true,
		Description: "Search the full tool catalogue by name or description keyword.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}, ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		query := strings.ToLower(stringArg(args, "query"))
		if query == "" {
			return failure("query is required")
		}
		var matches []string
		for _, def := range reg.All() {
			if strings.Contains(strings.ToLower(def.Name), query) || strings.Contains(strings.ToLower(def.Description), query) {
				matches = append(matches, def.Name)
			}
		}
		sort.Strings(matches)
		if len(matches) == 0 {
			return success("no tools matched")
		}
		return success(strings.Join(matches, "\n"))
	}))

	reg.Register(models.ToolDefinition{
		Name: "load_tools", Enabled: true,
		Description: "Enable one or more tools discovered via search_tools so they become available for the rest of this turn.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"names": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"names"},
		},
	}, ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		raw, _ := args["names"].([]any)
		if len(raw) == 0 {
			return failure("names is required")
		}
		var loaded, unknown []string
		var loadedDefs []models.ToolDefinition
		for _, v := range raw {
			name, ok := v.(string)
			if !ok {
				continue
			}
			if reg.SetEnabled(name, true) {
				loaded = append(loaded, name)
				if def, ok := reg.Get(name); ok {
					loadedDefs = append(loadedDefs, def.Definition)
				}
			} else {
				unknown = append(unknown, name)
			}
		}
		msg := "loaded: " + strings.Join(loaded, ", ")
		if len(unknown) > 0 {
			msg += " | unknown: " + strings.Join(unknown, ", ")
		}
		res := success(msg)
		if len(loadedDefs) > 0 {
			res.Metadata = map[string]any{"loaded_tools": loadedDefs}
		}
		return res
	}))
}
