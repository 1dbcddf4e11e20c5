package tools

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/relaycore/relaycore/internal/store"
	"github.com/relaycore/relaycore/pkg/models"
)

func noopExecutor() Executor {
	return ExecutorFunc(func(ctx context.Context, args map[string]any, tc models.ToolContext) models.ToolResult {
		return success("ok")
	})
}

func TestRegistrySetEnabledPersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools_config.json")

	reg := NewRegistry()
	reg.Register(models.ToolDefinition{Name: "read_file", Enabled: true}, noopExecutor())
	reg.LoadConfig(path, slog.Default())

	if !reg.SetEnabled("read_file", false) {
		t.Fatalf("expected SetEnabled to find read_file")
	}

	var saved map[string]struct {
		Enabled bool `json:"enabled"`
	}
	if err := store.ReadJSON(path, &saved); err != nil {
		t.Fatalf("expected tools_config.json to be written: %v", err)
	}
	if saved["read_file"].Enabled {
		t.Fatalf("expected persisted read_file entry to be disabled")
	}

	reg2 := NewRegistry()
	reg2.Register(models.ToolDefinition{Name: "read_file", Enabled: true}, noopExecutor())
	reg2.LoadConfig(path, slog.Default())

	def, ok := reg2.Get("read_file")
	if !ok {
		t.Fatalf("expected read_file to still be registered")
	}
	if def.Definition.Enabled {
		t.Fatalf("expected LoadConfig to apply the persisted disabled state on restart")
	}
}

func TestRegistryLoadConfigToleratesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does_not_exist", "tools_config.json")

	reg := NewRegistry()
	reg.Register(models.ToolDefinition{Name: "read_file", Enabled: true}, noopExecutor())
	reg.LoadConfig(path, slog.Default())

	def, ok := reg.Get("read_file")
	if !ok || !def.Definition.Enabled {
		t.Fatalf("expected register-time default to survive a missing config file")
	}
}
