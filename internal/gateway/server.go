// Package gateway exposes relaycore's agent loop, scheduler, and tool
// catalogue over HTTP: the core chat endpoint, the scheduler's own
// surface, and the tools/MCP admin surface, behind one stdlib mux.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaycore/relaycore/internal/agent"
	"github.com/relaycore/relaycore/internal/mcp"
	"github.com/relaycore/relaycore/internal/permission"
	"github.com/relaycore/relaycore/internal/scheduler"
	"github.com/relaycore/relaycore/internal/session"
	"github.com/relaycore/relaycore/internal/tools"
)

// Server owns the HTTP listener and the handlers wired over the core
// subsystems. It never opens tools/mcp/scheduler logic itself — it's a
// thin HTTP projection over them.
type Server struct {
	addr       string
	loop       *agent.Loop
	sessions   *session.Manager
	registry   *tools.Registry
	taskStore  *scheduler.Store
	sched      *scheduler.Scheduler
	mcpManager *mcp.Manager
	perm       *permission.Resolver
	logger     *slog.Logger
	startTime  time.Time

	httpServer   *http.Server
	httpListener net.Listener
}

// Deps bundles everything NewServer needs, so wiring stays in one call
// site (cmd/relaycore) rather than a long positional argument list.
type Deps struct {
	Host       string
	Port       int
	Loop       *agent.Loop
	Sessions   *session.Manager
	Registry   *tools.Registry
	TaskStore  *scheduler.Store
	Scheduler  *scheduler.Scheduler
	MCPManager *mcp.Manager
	Perm       *permission.Resolver
	Logger     *slog.Logger
}

// NewServer builds a Server ready for Start.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:       fmt.Sprintf("%s:%d", d.Host, d.Port),
		loop:       d.Loop,
		sessions:   d.Sessions,
		registry:   d.Registry,
		taskStore:  d.TaskStore,
		sched:      d.Scheduler,
		mcpManager: d.MCPManager,
		perm:       d.Perm,
		logger:     logger.With("component", "gateway"),
		startTime:  time.Now(),
	}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/clear", s.handleClear)

	mux.HandleFunc("/tasks", s.handleTasksCollection)
	mux.HandleFunc("/tasks/", s.handleTaskItem)
	mux.HandleFunc("/stats", s.handleStats)

	mux.HandleFunc("/tools", s.handleToolsList)
	mux.HandleFunc("/tools/enabled", s.handleToolsEnabled)
	mux.HandleFunc("/tools/base", s.handleToolsBase)
	mux.HandleFunc("/tools/load", s.handleToolsLoad)
	mux.HandleFunc("/tools/search", s.handleToolsSearch)
	mux.HandleFunc("/tools/", s.handleToolItem)

	mux.HandleFunc("/mcp/servers", s.handleMCPServers)
	mux.HandleFunc("/mcp/servers/", s.handleMCPServerItem)
	mux.HandleFunc("/mcp/refresh-all", s.handleMCPRefreshAll)
	mux.HandleFunc("/mcp/call/", s.handleMCPCall)

	return mux
}

// Start begins serving in the background and returns once the listener is
// bound; HTTP errors after that are logged, not returned (the server keeps
// running other sessions' turns regardless of one handler's fate).
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.httpListener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("gateway listening", "addr", s.addr)
	return nil
}

// Stop gracefully drains in-flight requests before closing the listener.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
