package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/relaycore/relaycore/pkg/models"
)

// handleMCPServers serves GET /mcp/servers and POST /mcp/servers.
func (s *Server) handleMCPServers(w http.ResponseWriter, r *http.Request) {
	if s.mcpManager == nil {
		http.Error(w, "mcp not configured", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.mcpManager.Servers())

	case http.MethodPost:
		var srv models.MCPServer
		if err := json.NewDecoder(r.Body).Decode(&srv); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if srv.Name == "" || srv.URL == "" {
			http.Error(w, "name and url are required", http.StatusBadRequest)
			return
		}
		if srv.Transport == "" {
			srv.Transport = models.MCPTransportHTTP
		}
		if err := s.mcpManager.AddServer(srv); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mcpManager.Refresh(r.Context())
		writeJSON(w, http.StatusCreated, srv)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMCPServerItem serves DELETE /mcp/servers/{name} and
// POST /mcp/servers/{name}/refresh.
func (s *Server) handleMCPServerItem(w http.ResponseWriter, r *http.Request) {
	if s.mcpManager == nil {
		http.Error(w, "mcp not configured", http.StatusServiceUnavailable)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/mcp/servers/")
	name, action, hasAction := strings.Cut(rest, "/")
	if name == "" {
		http.Error(w, "server name required", http.StatusBadRequest)
		return
	}

	if hasAction && action == "refresh" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		// The manager refreshes every enabled server in one idempotent pass;
		// there is no narrower per-server catalogue fetch to call into.
		s.mcpManager.Refresh(r.Context())
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.mcpManager.RemoveServer(name); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMCPRefreshAll(w http.ResponseWriter, r *http.Request) {
	if s.mcpManager == nil {
		http.Error(w, "mcp not configured", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mcpManager.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleMCPCall serves POST /mcp/call/{server}/{tool} {arguments}, a
// direct invocation path for admin testing outside the agent loop.
func (s *Server) handleMCPCall(w http.ResponseWriter, r *http.Request) {
	if s.mcpManager == nil {
		http.Error(w, "mcp not configured", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/mcp/call/")
	server, tool, ok := strings.Cut(rest, "/")
	if !ok || server == "" || tool == "" {
		http.Error(w, "expected /mcp/call/{server}/{tool}", http.StatusBadRequest)
		return
	}

	var args map[string]any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	result, err := s.mcpManager.Call(r.Context(), server, tool, args)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
