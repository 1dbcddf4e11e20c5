package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relaycore/relaycore/pkg/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request: %v", err)
		}
		switch req.Method {
		case "tools/list":
			result, _ := json.Marshal(listToolsResult{Tools: []mcpTool{
				{Name: "ps", Description: "list containers"},
			}})
			json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
		case "tools/call":
			result, _ := json.Marshal(callToolResult{Content: []toolResultContent{{Type: "text", Text: "container list"}}})
			json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestManagerRefreshPopulatesCache(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	m := NewManager(t.TempDir(), nil)
	if err := m.AddServer(models.MCPServer{Name: "docker", URL: srv.URL, Enabled: true}); err != nil {
		t.Fatalf("AddServer failed: %v", err)
	}

	m.Refresh(context.Background())

	cache := m.Cache()
	def, ok := cache.Tools["mcp_docker_ps"]
	if !ok {
		t.Fatalf("expected mcp_docker_ps in cache, got %+v", cache.Tools)
	}
	if def.Description != "list containers" {
		t.Fatalf("unexpected description %q", def.Description)
	}
	status := cache.ServerStatus["docker"]
	if !status.Connected || status.ToolCount != 1 {
		t.Fatalf("unexpected server status: %+v", status)
	}
}

func TestManagerCallRoutesToServer(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	m := NewManager(t.TempDir(), nil)
	m.AddServer(models.MCPServer{Name: "docker", URL: srv.URL, Enabled: true})

	result, err := m.Call(context.Background(), "docker", "ps", map[string]any{"all": true})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !result.Success || result.Output != "container list" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestManagerCallUnknownServer(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	if _, err := m.Call(context.Background(), "missing", "x", nil); err == nil {
		t.Fatalf("expected error for unknown server")
	}
}

func TestManagerRemoveServerClearsCache(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	m := NewManager(t.TempDir(), nil)
	m.AddServer(models.MCPServer{Name: "docker", URL: srv.URL, Enabled: true})
	m.Refresh(context.Background())

	if err := m.RemoveServer("docker"); err != nil {
		t.Fatalf("RemoveServer failed: %v", err)
	}
	cache := m.Cache()
	if len(cache.Tools) != 0 {
		t.Fatalf("expected cache cleared, got %+v", cache.Tools)
	}
}

func TestManagerPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	m1 := NewManager(dir, nil)
	m1.AddServer(models.MCPServer{Name: "docker", URL: "http://example.invalid", Enabled: true})

	m2 := NewManager(dir, nil)
	names := m2.ServerNames()
	if len(names) != 1 || names[0] != "docker" {
		t.Fatalf("expected server to persist across instances, got %v", names)
	}
}
