package models

import (
	"sync"
	"time"
)

// Session is the per-(user_id, chat_id) ephemeral runtime state. The
// transcript is the authoritative conversation history for the life of the
// process; Snapshot is a derived, advisory view persisted for humans.
type Session struct {
	mu sync.Mutex

	UserID      string
	ChatID      string
	Workspace   string
	Source      Source
	Transcript  []TranscriptEntry
	History     []SnapshotPair
	SecurityCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Lock serializes access to this session's mutable fields. Callers must
// call the returned unlock function exactly once.
func (s *Session) Lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

// ToolContext is the value object passed to every tool invocation.
type ToolContext struct {
	Workspace string
	SessionID string
	UserID    string
	ChatID    string
	ChatType  ChatType
	Source    Source
	IsAdmin   bool
}

// ToolSource identifies where a tool definition came from.
type ToolSource string

const (
	ToolSourceBuiltin        ToolSource = "builtin"
	ToolSourceBuiltinUserbot ToolSource = "builtin:userbot"
	ToolSourceMCPPrefix      ToolSource = "mcp:" // concatenated with server name
	ToolSourceSkillPrefix    ToolSource = "skill:"
)

// ToolDefinition describes one callable tool as surfaced to the LLM and to
// the tools-API.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Source      string         `json:"source"`
	Enabled     bool           `json:"enabled"`
}

// ToolResult is the outcome of a single tool invocation.
type ToolResult struct {
	Success  bool           `json:"success"`
	Output   string         `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MCPTransport enumerates supported MCP transports. Only HTTP JSON-RPC is
// implemented; the field exists so a config file naming another transport
// fails closed (server treated as unreachable) rather than panicking.
type MCPTransport string

const (
	MCPTransportHTTP MCPTransport = "http"
)

// MCPServer is a configured remote tool server.
type MCPServer struct {
	Name        string       `json:"name"`
	URL         string       `json:"url"`
	Transport   MCPTransport `json:"transport"`
	APIKey      string       `json:"api_key,omitempty"`
	Enabled     bool         `json:"enabled"`
	Description string       `json:"description,omitempty"`
}

// MCPServerStatus reports the last known connectivity of one server.
type MCPServerStatus struct {
	Connected   bool      `json:"connected"`
	ToolCount   int       `json:"tool_count"`
	LastRefresh time.Time `json:"last_refresh"`
	LastError   string    `json:"last_error,omitempty"`
}

// MCPToolsCache is the process-wide catalogue of tools discovered from all
// configured MCP servers, keyed by the prefixed name `mcp_<server>_<tool>`.
type MCPToolsCache struct {
	Tools        map[string]ToolDefinition  `json:"tools"`
	ServerStatus map[string]MCPServerStatus `json:"server_status"`
	LastRefresh  time.Time                  `json:"last_refresh"`
}

// TaskType distinguishes a reminder delivered verbatim from one re-entering
// the agent loop.
type TaskType string

const (
	TaskMessage TaskType = "message"
	TaskAgent   TaskType = "agent"
)

// Task is a durable scheduled item.
type Task struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ChatID          string     `json:"chat_id"`
	Source          Source     `json:"source"`
	TaskType        TaskType   `json:"task_type"`
	Content         string     `json:"content"`
	ExecuteAt       int64      `json:"execute_at"`
	CreatedAt       int64      `json:"created_at"`
	LastRun         *int64     `json:"last_run,omitempty"`
	RunCount        int        `json:"run_count"`
	Recurring       bool       `json:"recurring"`
	IntervalMinutes int        `json:"interval_minutes"`
	CronExpression  string     `json:"cron_expression,omitempty"`
	Enabled         bool       `json:"enabled"`
}

// PermissionMode selects whether Tools names an allow- or deny-list.
type PermissionMode string

const (
	PermissionAllowlist PermissionMode = "allowlist"
	PermissionDenylist  PermissionMode = "denylist"
)

// SessionPermission is one session-type's entry in tool_permissions.json.
type SessionPermission struct {
	Mode        PermissionMode `json:"mode"`
	Tools       []string       `json:"tools"` // ["*"] means "all"
	Description string         `json:"description,omitempty"`
}

// PermissionConfig is the full tool_permissions.json contract, one entry
// per session type.
type PermissionConfig map[SessionType]SessionPermission

// PendingQuestion is an outstanding ask_user question awaiting the next
// inbound message from its (user, chat).
type PendingQuestion struct {
	QuestionID string `json:"question_id"`
	ChatID     string `json:"chat_id"`
	UserID     string `json:"user_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer,omitempty"`
	CreatedAt  time.Time
}
