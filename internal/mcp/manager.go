package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/relaycore/relaycore/internal/store"
	"github.com/relaycore/relaycore/pkg/models"
)

const (
	serversFileName = "mcp_servers.json"
	cacheFileName   = "mcp_tools_cache.json"
)

type serverList struct {
	Servers map[string]models.MCPServer `json:"servers"`
}

// Manager owns the persisted MCP server list and the derived tool cache
// populated from each server's tools/list catalogue. It implements
// tools.MCPCaller so internal/tools never imports this package directly.
type Manager struct {
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger

	servers map[string]models.MCPServer
	cache   models.MCPToolsCache
}

// NewManager loads the server list and cache from configDir, creating
// empty ones if absent.
func NewManager(configDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		configPath: configDir,
		logger:     logger,
		servers:    make(map[string]models.MCPServer),
		cache: models.MCPToolsCache{
			Tools:        make(map[string]models.ToolDefinition),
			ServerStatus: make(map[string]models.MCPServerStatus),
		},
	}

	var list serverList
	if ok, _ := store.ReadJSONOrDefault(m.serversPath(), &list); ok && list.Servers != nil {
		m.servers = list.Servers
	}
	store.ReadJSONOrDefault(m.cachePath(), &m.cache)
	if m.cache.Tools == nil {
		m.cache.Tools = make(map[string]models.ToolDefinition)
	}
	if m.cache.ServerStatus == nil {
		m.cache.ServerStatus = make(map[string]models.MCPServerStatus)
	}
	return m
}

func (m *Manager) serversPath() string { return filepath.Join(m.configPath, serversFileName) }
func (m *Manager) cachePath() string   { return filepath.Join(m.configPath, cacheFileName) }

func (m *Manager) persistServers() error {
	return store.WriteJSON(m.serversPath(), &serverList{Servers: m.servers})
}

func (m *Manager) persistCache() error {
	return store.WriteJSON(m.cachePath(), &m.cache)
}

// AddServer registers a new MCP server and persists the server list. It
// does not fetch the server's catalogue — call Refresh for that.
func (m *Manager) AddServer(s models.MCPServer) error {
	if s.Name == "" {
		return fmt.Errorf("server name is required")
	}
	if s.Transport == "" {
		s.Transport = models.MCPTransportHTTP
	}
	m.mu.Lock()
	m.servers[s.Name] = s
	err := m.persistServers()
	m.mu.Unlock()
	return err
}

// RemoveServer deletes a server and its cached tools.
func (m *Manager) RemoveServer(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.servers, name)
	prefix := "mcp_" + name + "_"
	for toolName := range m.cache.Tools {
		if len(toolName) > len(prefix) && toolName[:len(prefix)] == prefix {
			delete(m.cache.Tools, toolName)
		}
	}
	delete(m.cache.ServerStatus, name)
	if err := m.persistServers(); err != nil {
		return err
	}
	return m.persistCache()
}

// Servers returns a snapshot of every registered server.
func (m *Manager) Servers() []models.MCPServer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.MCPServer, 0, len(m.servers))
	for _, s := range m.servers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ServerNames implements tools.MCPCaller.
func (m *Manager) ServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	return names
}

// Refresh fetches tools/list from every enabled server and repopulates
// the cache. A single server's failure is recorded in ServerStatus and
// does not abort the refresh of the others — idempotent: calling it
// again with unchanged servers reproduces the same cache.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.RLock()
	servers := make([]models.MCPServer, 0, len(m.servers))
	for _, s := range m.servers {
		servers = append(servers, s)
	}
	m.mu.RUnlock()

	newTools := make(map[string]models.ToolDefinition)
	newStatus := make(map[string]models.MCPServerStatus)

	for _, s := range servers {
		if !s.Enabled {
			continue
		}
		client := newHTTPClient(s)
		toolList, err := client.listTools(ctx)
		if err != nil {
			m.logger.Warn("mcp catalogue fetch failed", "server", s.Name, "error", err)
			newStatus[s.Name] = models.MCPServerStatus{Connected: false, LastError: err.Error(), LastRefresh: time.Now()}
			continue
		}
		for _, t := range toolList {
			name := "mcp_" + s.Name + "_" + t.Name
			var params map[string]any
			if len(t.InputSchema) > 0 {
				_ = unmarshalSchema(t.InputSchema, &params)
			}
			newTools[name] = models.ToolDefinition{
				Name:        name,
				Description: t.Description,
				Parameters:  params,
				Source:      string(models.ToolSourceMCPPrefix) + s.Name,
				Enabled:     true,
			}
		}
		newStatus[s.Name] = models.MCPServerStatus{Connected: true, ToolCount: len(toolList), LastRefresh: time.Now()}
	}

	m.mu.Lock()
	m.cache = models.MCPToolsCache{Tools: newTools, ServerStatus: newStatus, LastRefresh: time.Now()}
	err := m.persistCache()
	m.mu.Unlock()
	if err != nil {
		m.logger.Warn("failed persisting mcp cache", "error", err)
	}
}

// Cache returns a snapshot of the tool cache.
func (m *Manager) Cache() models.MCPToolsCache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache
}

// Call implements tools.MCPCaller: dispatches a single tools/call against
// the named server.
func (m *Manager) Call(ctx context.Context, server, tool string, args map[string]any) (models.ToolResult, error) {
	m.mu.RLock()
	s, ok := m.servers[server]
	m.mu.RUnlock()
	if !ok {
		return models.ToolResult{}, fmt.Errorf("MCP server %q not found", server)
	}
	client := newHTTPClient(s)
	return client.callTool(ctx, tool, args)
}

func unmarshalSchema(raw []byte, out *map[string]any) error {
	return json.Unmarshal(raw, out)
}
