package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relaycore/relaycore/internal/scheduler"
	"github.com/relaycore/relaycore/internal/tools"
	"github.com/relaycore/relaycore/pkg/models"
)

func newTestServer(t *testing.T) (*Server, *tools.Registry, *scheduler.Store) {
	t.Helper()
	registry := tools.NewRegistry()
	registry.Register(models.ToolDefinition{
		Name: "echo", Description: "echoes input", Enabled: true, Source: "builtin",
	}, tools.ExecutorFunc(func(_ context.Context, _ map[string]any, _ models.ToolContext) models.ToolResult {
		return models.ToolResult{Success: true, Output: "ok"}
	}))
	taskStore := scheduler.NewStore(t.TempDir())

	s := NewServer(Deps{
		Host:      "127.0.0.1",
		Port:      0,
		Registry:  registry,
		TaskStore: taskStore,
	})
	return s, registry, taskStore
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.mux().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}

func TestHandleToolsList(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/tools", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var defs []models.ToolDefinition
	if err := json.Unmarshal(rec.Body.Bytes(), &defs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "echo" {
		t.Errorf("defs = %+v, want single echo tool", defs)
	}
}

func TestHandleToolItemDisable(t *testing.T) {
	s, registry, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodDelete, "/tools/echo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	d, ok := registry.Get("echo")
	if !ok || d.Definition.Enabled {
		t.Errorf("expected echo to be disabled after DELETE, got %+v", d.Definition)
	}
}

func TestHandleToolItemUnknownName(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPut, "/tools/does-not-exist", map[string]bool{"enabled": true})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleTasksCollectionCreateAndList(t *testing.T) {
	s, _, _ := newTestServer(t)

	createRec := doRequest(t, s, http.MethodPost, "/tasks", models.Task{
		UserID: "u1", ChatID: "c1", Content: "say hi",
	})
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", createRec.Code, createRec.Body.String())
	}

	listRec := doRequest(t, s, http.MethodGet, "/tasks", nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", listRec.Code)
	}
	var tasks []models.Task
	if err := json.Unmarshal(listRec.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Content != "say hi" {
		t.Errorf("tasks = %+v, want one task with content 'say hi'", tasks)
	}
}

func TestHandleTasksCollectionRejectsMissingFields(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/tasks", models.Task{UserID: "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTaskItemNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/tasks/missing-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	s, _, store := newTestServer(t)
	if _, err := store.Add(models.Task{UserID: "u1", ChatID: "c1", Content: "x", Enabled: true}); err != nil {
		t.Fatalf("seed task: %v", err)
	}
	rec := doRequest(t, s, http.MethodGet, "/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalTasks != 1 || stats.EnabledTasks != 1 {
		t.Errorf("stats = %+v, want 1/1", stats)
	}
}

func TestHandleMCPRoutesReturnUnavailableWithoutManager(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/mcp/servers", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleChatWithoutLoopConfigured(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodPost, "/api/chat", chatRequest{
		UserID: "u1", ChatID: "c1", Message: "hi",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleToolsSearch(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/tools/search?query=echo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var defs []models.ToolDefinition
	if err := json.Unmarshal(rec.Body.Bytes(), &defs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(defs) != 1 {
		t.Errorf("defs = %+v, want one match", defs)
	}
}

func TestHandleToolsSearchNoMatch(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := doRequest(t, s, http.MethodGet, "/tools/search?query=nonexistent", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var defs []models.ToolDefinition
	if err := json.Unmarshal(rec.Body.Bytes(), &defs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(defs) != 0 {
		t.Errorf("defs = %+v, want no matches", defs)
	}
}
