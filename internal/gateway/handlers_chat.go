package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/relaycore/relaycore/pkg/models"
)

type chatRequest struct {
	UserID   string `json:"user_id"`
	ChatID   string `json:"chat_id"`
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
	ChatType string `json:"chat_type,omitempty"`
	Source   string `json:"source,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// handleChat runs one agent turn. Errors at the handler level (bad
// request, missing loop, a session that cannot be set up) are the only
// kind that ever escape as non-200 responses — everything the turn itself produces (transport failure,
// security lock, a tool error) comes back as 200 with response text; no
// turn-level outcome escapes as an HTTP error status.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.loop == nil {
		http.Error(w, "agent loop not configured", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ChatID == "" || req.Message == "" {
		http.Error(w, "user_id, chat_id, and message are required", http.StatusBadRequest)
		return
	}

	chatType := models.ChatPrivate
	if req.ChatType != "" {
		chatType = models.ChatType(req.ChatType)
	}
	source := models.SourceBot
	if req.Source != "" {
		source = models.Source(req.Source)
	}

	reply, err := s.loop.Run(r.Context(), req.UserID, req.ChatID, req.Message, req.Username, chatType, source)
	if err != nil {
		s.logger.Error("chat turn failed", "error", err, "user_id", req.UserID, "chat_id", req.ChatID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

type clearRequest struct {
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
}

type clearResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.ChatID == "" {
		http.Error(w, "user_id and chat_id are required", http.StatusBadRequest)
		return
	}

	s.sessions.Clear(req.UserID, req.ChatID)
	writeJSON(w, http.StatusOK, clearResponse{Success: true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
