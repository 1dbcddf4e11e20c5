package tools

import (
	"log/slog"
	"os"
	"sync"

	"github.com/relaycore/relaycore/internal/store"
	"github.com/relaycore/relaycore/pkg/models"
)

// Registered pairs a definition with its executor.
type Registered struct {
	Definition models.ToolDefinition
	Executor   Executor
}

// toolConfigEntry is one tool's row in tools_config.json.
type toolConfigEntry struct {
	Enabled bool `json:"enabled"`
}

// Registry holds every built-in tool definition and executor, plus the
// persisted enabled/disabled map from tools_config.json. It does not know
// about MCP tools — those live in the MCP tool cache and are merged in by
// the agent loop.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Registered
	configPath string
	logger     *slog.Logger
}

// NewRegistry creates an empty registry with no persisted config path;
// call LoadConfig after registering tools to wire tools_config.json.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Registered)}
}

// LoadConfig points the registry at tools_config.json and applies any
// enabled/disabled overrides it contains on top of the already-registered
// tools. A missing file is not an error — every tool keeps its
// Register-time default. Subsequent SetEnabled calls persist to path.
func (r *Registry) LoadConfig(path string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.mu.Lock()
	r.configPath = path
	r.logger = logger.With("component", "tools")
	r.mu.Unlock()

	if path == "" {
		return
	}

	var saved map[string]toolConfigEntry
	if err := store.ReadJSON(path, &saved); err != nil {
		if !os.IsNotExist(err) {
			r.logger.Error("failed to load tool config", "error", err)
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, entry := range saved {
		if t, ok := r.tools[name]; ok {
			t.Definition.Enabled = entry.Enabled
			r.tools[name] = t
		}
	}
}

// persistConfig writes every registered tool's enabled state to
// configPath. Caller must not hold r.mu.
func (r *Registry) persistConfig() {
	r.mu.RLock()
	path := r.configPath
	logger := r.logger
	if path == "" {
		r.mu.RUnlock()
		return
	}
	out := make(map[string]toolConfigEntry, len(r.tools))
	for name, t := range r.tools {
		out[name] = toolConfigEntry{Enabled: t.Definition.Enabled}
	}
	r.mu.RUnlock()

	if err := store.WriteJSON(path, out); err != nil && logger != nil {
		logger.Error("failed to persist tool config", "error", err)
	}
}

// Register adds or replaces a built-in tool. Built-in default is enabled.
func (r *Registry) Register(def models.ToolDefinition, exec Executor) {
	if def.Source == "" {
		def.Source = string(models.ToolSourceBuiltin)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = Registered{Definition: def, Executor: exec}
}

// Get returns the registered tool by name.
func (r *Registry) Get(name string) (Registered, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// SetEnabled toggles a tool's Enabled flag and persists every tool's
// state to tools_config.json if LoadConfig has set a path.
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	t, ok := r.tools[name]
	if !ok {
		r.mu.Unlock()
		return false
	}
	t.Definition.Enabled = enabled
	r.tools[name] = t
	r.mu.Unlock()

	r.persistConfig()
	return true
}

// All returns every registered built-in tool definition.
func (r *Registry) All() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Definition)
	}
	return out
}

// Names returns every registered tool name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}

// BaseToolNames is the fixed default subset exposed to the model when lazy
// tool loading is enabled, grounded on the tools-API's literal
// BASE_TOOL_NAMES list (note: delete_file is intentionally excluded from
// the base set, matching the original's own omission).
var BaseToolNames = []string{
	"run_command", "read_file", "write_file", "edit_file", "list_directory",
	"search_files", "search_text", "memory", "manage_tasks",
	"search_tools", "load_tools", "search_web", "fetch_page",
	"telegram_channel", "telegram_send", "telegram_dialogs", "telegram_history", "telegram_join",
}

// BotOnlyToolNames are appended only when the turn's source is bot.
var BotOnlyToolNames = []string{"send_file", "send_dm", "manage_message", "ask_user"}
