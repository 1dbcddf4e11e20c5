package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/relaycore/relaycore/internal/tools"
	"github.com/relaycore/relaycore/pkg/models"
)

// handleToolsList serves GET /tools: the full catalogue, enabled or not.
func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.All())
}

// handleToolsEnabled serves GET /tools/enabled[?user_id]: every enabled
// built-in tool in the registry. The user_id parameter, lazy loading and
// chat-type permission filtering are not applied.
func (s *Server) handleToolsEnabled(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var out []models.ToolDefinition
	for _, d := range s.registry.All() {
		if d.Enabled {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleToolsBase serves GET /tools/base: the fixed lazy-loading subset.
func (s *Server) handleToolsBase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	byName := make(map[string]models.ToolDefinition)
	for _, d := range s.registry.All() {
		byName[d.Name] = d
	}
	var out []models.ToolDefinition
	for _, name := range tools.BaseToolNames {
		if d, ok := byName[name]; ok {
			out = append(out, d)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleToolsLoad serves POST /tools/load {names: [...]}: enables a set of
// tools by name, mirroring the load_tools built-in's dynamic discovery
// effect but as an explicit admin action.
func (s *Server) handleToolsLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	loaded := make([]string, 0, len(req.Names))
	for _, name := range req.Names {
		if s.registry.SetEnabled(name, true) {
			loaded = append(loaded, name)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"loaded": loaded})
}

// handleToolsSearch serves GET /tools/search?query&source&limit: a
// substring match over name/description, optionally filtered by source
// prefix, capped at limit (default 20).
func (s *Server) handleToolsSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := strings.ToLower(r.URL.Query().Get("query"))
	source := r.URL.Query().Get("source")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var out []models.ToolDefinition
	for _, d := range s.registry.All() {
		if source != "" && !strings.HasPrefix(d.Source, source) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(d.Name), query) &&
			!strings.Contains(strings.ToLower(d.Description), query) {
			continue
		}
		out = append(out, d)
		if len(out) >= limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleToolItem serves PUT /tools/{name} {enabled} and DELETE /tools/{name}
// (disables rather than unregisters — the built-in stays known, just off).
func (s *Server) handleToolItem(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/tools/")
	if name == "" {
		http.Error(w, "tool name required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if !s.registry.SetEnabled(name, req.Enabled) {
			http.Error(w, "tool not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	case http.MethodDelete:
		if !s.registry.SetEnabled(name, false) {
			http.Error(w, "tool not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
