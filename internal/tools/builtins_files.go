package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relaycore/relaycore/pkg/models"
)

// resolvePath confines every file tool to the session's workspace: a
// relative path is joined under it, and any attempt to escape via ".."
// is rejected rather than silently clamped.
func resolvePath(workspace, rel string) (string, error) {
	if rel == "" {
		rel = "."
	}
	full := filepath.Join(workspace, rel)
	cleanRoot := filepath.Clean(workspace)
	if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", rel)
	}
	return full, nil
}

func readFileTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	path, err := resolvePath(tc.Workspace, stringArg(args, "path"))
	if err != nil {
		return failure("BLOCKED: %s", err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return failure("%s", err.Error())
	}
	return success(string(data))
}

func writeFileTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	path, err := resolvePath(tc.Workspace, stringArg(args, "path"))
	if err != nil {
		return failure("BLOCKED: %s", err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return failure("%s", err.Error())
	}
	content := stringArg(args, "content")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return failure("%s", err.Error())
	}
	return success(fmt.Sprintf("wrote %d bytes to %s", len(content), stringArg(args, "path")))
}

func editFileTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	path, err := resolvePath(tc.Workspace, stringArg(args, "path"))
	if err != nil {
		return failure("BLOCKED: %s", err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return failure("%s", err.Error())
	}
	oldStr := stringArg(args, "old_string")
	newStr := stringArg(args, "new_string")
	if oldStr == "" {
		return failure("old_string is required")
	}
	content := string(data)
	count := strings.Count(content, oldStr)
	if count == 0 {
		return failure("old_string not found in %s", stringArg(args, "path"))
	}
	if count > 1 && !boolArg(args, "replace_all", false) {
		return failure("old_string is not unique in %s (%d matches); set replace_all or provide more context", stringArg(args, "path"), count)
	}
	updated := strings.ReplaceAll(content, oldStr, newStr)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return failure("%s", err.Error())
	}
	return success(fmt.Sprintf("replaced %d occurrence(s) in %s", count, stringArg(args, "path")))
}

func deleteFileTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	path, err := resolvePath(tc.Workspace, stringArg(args, "path"))
	if err != nil {
		return failure("BLOCKED: %s", err.Error())
	}
	if err := os.Remove(path); err != nil {
		return failure("%s", err.Error())
	}
	return success(fmt.Sprintf("deleted %s", stringArg(args, "path")))
}

func listDirectoryTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	path, err := resolvePath(tc.Workspace, stringArg(args, "path"))
	if err != nil {
		return failure("BLOCKED: %s", err.Error())
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return failure("%s", err.Error())
	}
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			b.WriteString(e.Name() + "/\n")
		} else {
			b.WriteString(e.Name() + "\n")
		}
	}
	return success(b.String())
}

func searchFilesTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	pattern := stringArg(args, "pattern")
	if pattern == "" {
		return failure("pattern is required")
	}
	var matches []string
	_ = filepath.WalkDir(tc.Workspace, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(tc.Workspace, path)
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if len(matches) == 0 {
		return success("no files matched")
	}
	return success(strings.Join(matches, "\n"))
}

func searchTextTool(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
	query := stringArg(args, "query")
	if query == "" {
		return failure("query is required")
	}
	var hits []string
	_ = filepath.WalkDir(tc.Workspace, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		if strings.Contains(string(data), query) {
			rel, _ := filepath.Rel(tc.Workspace, path)
			hits = append(hits, rel)
		}
		return nil
	})
	if len(hits) == 0 {
		return success("no matches")
	}
	return success(strings.Join(hits, "\n"))
}

// RegisterFileTools adds the filesystem built-ins to reg.
func RegisterFileTools(reg *Registry) {
	reg.Register(models.ToolDefinition{
		Name: "read_file", Enabled: true,
		Description: "Read a file's contents from the session workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []string{"path"},
		},
	}, ExecutorFunc(readFileTool))

	reg.Register(models.ToolDefinition{
		Name: "write_file", Enabled: true,
		Description: "Write (overwrite) a file in the session workspace.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"path", "content"},
		},
	}, ExecutorFunc(writeFileTool))

	reg.Register(models.ToolDefinition{
		Name: "edit_file", Enabled: true,
		Description: "Replace an exact substring in a file.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":        map[string]any{"type": "string"},
				"old_string":  map[string]any{"type": "string"},
				"new_string":  map[string]any{"type": "string"},
				"replace_all": map[string]any{"type": "boolean"},
			},
			"required": []string{"path", "old_string", "new_string"},
		},
	}, ExecutorFunc(editFileTool))

	reg.Register(models.ToolDefinition{
		Name: "delete_file", Enabled: true,
		Description: "Delete a file in the session workspace.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
			"required":   []string{"path"},
		},
	}, ExecutorFunc(deleteFileTool))

	reg.Register(models.ToolDefinition{
		Name: "list_directory", Enabled: true,
		Description: "List entries of a directory in the session workspace.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"path": map[string]any{"type": "string"}},
		},
	}, ExecutorFunc(listDirectoryTool))

	reg.Register(models.ToolDefinition{
		Name: "search_files", Enabled: true,
		Description: "Find files in the workspace matching a glob pattern.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"pattern": map[string]any{"type": "string"}},
			"required":   []string{"pattern"},
		},
	}, ExecutorFunc(searchFilesTool))

	reg.Register(models.ToolDefinition{
		Name: "search_text", Enabled: true,
		Description: "Search file contents in the workspace for a substring.",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}, ExecutorFunc(searchTextTool))
}
