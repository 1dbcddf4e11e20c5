// Package permission implements relaycore's declarative allowlist/denylist
// engine: given a tool name, session type, and source, decide whether the
// tool may run, and filter a tool-definition list accordingly.
package permission

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/relaycore/relaycore/internal/store"
	"github.com/relaycore/relaycore/pkg/models"
)

// SandboxDenied is never allowed in a sandbox session, regardless of the
// sandbox entry's own allowlist.
var SandboxDenied = map[string]bool{
	"send_dm":        true,
	"manage_message": true,
	"schedule_task":  true,
	"ask_user":       true,
}

// DangerousTools is advisory: it surfaces a human-readable reason via the
// admin tools-config endpoint but never changes a permission decision.
var DangerousTools = map[string]string{
	"run_command":   "Can execute arbitrary shell commands",
	"write_file":    "Can overwrite files",
	"delete_file":   "Can delete files",
	"schedule_task": "Can schedule persistent tasks",
}

// DefaultPermissions mirrors the compiled-in defaults: full access in a
// direct message, a small denylist in groups, a minimal allowlist in the
// sandbox, and the bot-only tools stripped for the userbot source.
func DefaultPermissions() models.PermissionConfig {
	return models.PermissionConfig{
		models.SessionMain: {
			Mode:        models.PermissionAllowlist,
			Tools:       []string{"*"},
			Description: "Full access for direct messages",
		},
		models.SessionGroup: {
			Mode:        models.PermissionDenylist,
			Tools:       []string{"send_dm", "manage_message", "schedule_task"},
			Description: "Restricted access for group chats",
		},
		models.SessionSandbox: {
			Mode: models.PermissionAllowlist,
			Tools: []string{
				"run_command", "read_file", "write_file", "edit_file", "delete_file",
				"search_files", "search_text", "list_directory", "memory", "manage_tasks",
			},
			Description: "Minimal tools for sandboxed sessions",
		},
		models.SessionUserbot: {
			Mode:        models.PermissionDenylist,
			Tools:       []string{"send_file", "send_dm", "manage_message", "ask_user"},
			Description: "Userbot cannot use bot-only tools",
		},
	}
}

// Result is the outcome of a Check call.
type Result struct {
	Allowed       bool
	Reason        string
	Tool          string
	EffectiveType models.SessionType
}

// Resolver is the permission engine. It is safe for concurrent use; Check
// and Filter take a read lock, loadOverride and Update take a write lock.
type Resolver struct {
	mu          sync.RWMutex
	permissions models.PermissionConfig
	overridePath string
	logger      *slog.Logger
	watcher     *fsnotify.Watcher
}

// New loads permissions from overridePath if present, else the compiled-in
// defaults, and starts watching the file's directory for reload-on-write.
// A missing or corrupt override file is never fatal: New falls back to
// DefaultPermissions and logs the reason.
func New(overridePath string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		permissions:  DefaultPermissions(),
		overridePath: overridePath,
		logger:       logger.With("component", "permission"),
	}
	r.loadOverride()
	r.startWatch()
	return r
}

// loadOverride shallow-merges each session type present in the override
// file into the in-memory defaults; a session type present in the file but
// absent from the defaults is added verbatim.
func (r *Resolver) loadOverride() {
	if r.overridePath == "" {
		return
	}
	var custom map[models.SessionType]models.SessionPermission
	ok, err := store.ReadJSONOrDefault(r.overridePath, &custom)
	if !ok {
		if err != nil && !os.IsNotExist(err) {
			r.logger.Error("failed to load permission overrides", "error", err)
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	merged := make(models.PermissionConfig, len(r.permissions))
	for k, v := range r.permissions {
		merged[k] = v
	}
	for sessionType, cfg := range custom {
		merged[sessionType] = cfg
	}
	r.permissions = merged
	r.logger.Info("loaded permission overrides", "path", r.overridePath)
}

// startWatch installs an fsnotify watch on the override file's directory
// so admin edits applied by another process take effect without a restart.
// Failure to start the watcher is logged, not fatal.
func (r *Resolver) startWatch() {
	if r.overridePath == "" {
		return
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		r.logger.Warn("permission override watch disabled", "error", err)
		return
	}
	dir := filepath.Dir(r.overridePath)
	if err := w.Add(dir); err != nil {
		r.logger.Warn("permission override watch disabled", "error", err)
		w.Close()
		return
	}
	r.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == filepath.Clean(r.overridePath) {
					r.loadOverride()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				r.logger.Warn("permission watch error", "error", err)
			}
		}
	}()
}

// Close stops the reload watcher, if any.
func (r *Resolver) Close() error {
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// EffectiveType maps a chat type and source to a permission session type.
// Userbot source always wins; otherwise private→main, group/supergroup→group,
// sandbox→sandbox, anything else defaults to main.
func EffectiveType(chatType models.ChatType, source models.Source) models.SessionType {
	if source == models.SourceUserbot {
		return models.SessionUserbot
	}
	switch chatType {
	case models.ChatPrivate, "":
		return models.SessionMain
	case models.ChatGroup, models.ChatSupergroup:
		return models.SessionGroup
	case models.ChatSandbox:
		return models.SessionSandbox
	default:
		return models.SessionMain
	}
}

// Check decides whether tool may run for the given chat type and source.
func (r *Resolver) Check(toolName string, chatType models.ChatType, source models.Source) Result {
	effective := EffectiveType(chatType, source)

	r.mu.RLock()
	cfg, ok := r.permissions[effective]
	if !ok {
		cfg = r.permissions[models.SessionMain]
	}
	r.mu.RUnlock()

	allowed, reason := decide(cfg, toolName)

	if effective == models.SessionSandbox && SandboxDenied[toolName] {
		allowed = false
		reason = fmt.Sprintf("tool %q never allowed in sandbox", toolName)
	}

	return Result{Allowed: allowed, Reason: reason, Tool: toolName, EffectiveType: effective}
}

func decide(cfg models.SessionPermission, toolName string) (bool, string) {
	wildcard := len(cfg.Tools) == 1 && cfg.Tools[0] == "*"

	switch cfg.Mode {
	case models.PermissionAllowlist:
		if wildcard {
			return true, "all tools allowed"
		}
		if contains(cfg.Tools, toolName) {
			return true, "tool in allowlist"
		}
		return false, "tool not in allowlist"
	case models.PermissionDenylist:
		if wildcard {
			return false, "all tools denied"
		}
		if contains(cfg.Tools, toolName) {
			return false, "tool in denylist"
		}
		return true, "tool not in denylist"
	default:
		return true, "unknown mode, defaulting to allow"
	}
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

// AllowedTools returns every name in allTools that Check would allow for
// this chat type and source — used to compute get_allowed_tools-style
// listings without re-checking per name from the caller's side.
func (r *Resolver) AllowedTools(allTools []string, chatType models.ChatType, source models.Source) []string {
	allowed := make([]string, 0, len(allTools))
	for _, name := range allTools {
		if r.Check(name, chatType, source).Allowed {
			allowed = append(allowed, name)
		}
	}
	return allowed
}

// Filter removes tool definitions not allowed for this chat type and
// source. It is idempotent: Filter(Filter(defs)) == Filter(defs), since
// the decision only depends on (name, chatType, source), never on prior
// filtering.
func (r *Resolver) Filter(defs []models.ToolDefinition, chatType models.ChatType, source models.Source) []models.ToolDefinition {
	out := make([]models.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		if r.Check(d.Name, chatType, source).Allowed {
			out = append(out, d)
		}
	}
	return out
}

// Snapshot returns the currently effective configuration, for the admin
// status endpoint.
func (r *Resolver) Snapshot() models.PermissionConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(models.PermissionConfig, len(r.permissions))
	for k, v := range r.permissions {
		out[k] = v
	}
	return out
}

// Update persists a new configuration for one session type and applies it
// in-memory immediately.
func (r *Resolver) Update(sessionType models.SessionType, cfg models.SessionPermission) error {
	r.mu.Lock()
	merged := make(models.PermissionConfig, len(r.permissions))
	for k, v := range r.permissions {
		merged[k] = v
	}
	merged[sessionType] = cfg
	r.permissions = merged
	path := r.overridePath
	r.mu.Unlock()

	if path == "" {
		return nil
	}
	return store.WriteJSON(path, merged)
}
