package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/relaycore/relaycore/pkg/models"
)

// handleTasksCollection serves GET /tasks[?user_id] and POST /tasks.
func (s *Server) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	if s.taskStore == nil {
		http.Error(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if userID := r.URL.Query().Get("user_id"); userID != "" {
			writeJSON(w, http.StatusOK, s.taskStore.ListForUser(userID))
			return
		}
		writeJSON(w, http.StatusOK, s.taskStore.All())

	case http.MethodPost:
		var t models.Task
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if t.UserID == "" || t.ChatID == "" || t.Content == "" {
			http.Error(w, "user_id, chat_id, and content are required", http.StatusBadRequest)
			return
		}
		created, err := s.taskStore.Add(t)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, created)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskItem serves GET/PUT/DELETE /tasks/{id} and POST /tasks/{id}/run.
func (s *Server) handleTaskItem(w http.ResponseWriter, r *http.Request) {
	if s.taskStore == nil {
		http.Error(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/tasks/")
	id, action, hasAction := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "task id required", http.StatusBadRequest)
		return
	}

	if hasAction && action == "run" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.sched == nil {
			http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
			return
		}
		if err := s.sched.RunNow(r.Context(), id); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	switch r.Method {
	case http.MethodGet:
		t, ok := s.taskStore.Get(id)
		if !ok {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, t)

	case http.MethodPut:
		var t models.Task
		if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		t.ID = id
		if err := s.taskStore.Update(t); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, t)

	case http.MethodDelete:
		if err := s.taskStore.Cancel(id); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type statsResponse struct {
	TotalTasks   int `json:"total_tasks"`
	EnabledTasks int `json:"enabled_tasks"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.taskStore == nil {
		http.Error(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}
	all := s.taskStore.All()
	enabled := 0
	for _, t := range all {
		if t.Enabled {
			enabled++
		}
	}
	writeJSON(w, http.StatusOK, statsResponse{TotalTasks: len(all), EnabledTasks: enabled})
}
