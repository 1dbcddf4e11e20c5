package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relaycore/relaycore/internal/agent"
	"github.com/relaycore/relaycore/internal/agent/providers"
	"github.com/relaycore/relaycore/internal/config"
	"github.com/relaycore/relaycore/internal/gateway"
	"github.com/relaycore/relaycore/internal/mcp"
	"github.com/relaycore/relaycore/internal/permission"
	"github.com/relaycore/relaycore/internal/scheduler"
	"github.com/relaycore/relaycore/internal/session"
	"github.com/relaycore/relaycore/internal/tools"
)

func buildServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relaycore gateway, agent loop, and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	sessions := session.NewManager(cfg.Workspace.Root, logger)
	registry := tools.NewRegistry()
	adapter := tools.NewAdapterClient(cfg.Adapter.BaseURL)
	taskStore := scheduler.NewStore(cfg.Workspace.Root)
	tools.RegisterAll(registry, adapter, taskStore)
	registry.LoadConfig(cfg.Tools.ConfigPath, logger)

	perm := permission.New(cfg.Permissions.OverridePath, logger)
	mcpManager := mcp.NewManager(cfg.MCP.ConfigDir, logger)
	mcpManager.Refresh(ctx)

	dispatcher := tools.NewDispatcher(registry, perm, mcpManager)
	dispatcher.SetTimeout(cfg.Tools.DispatchTimeout)
	dispatcher.SetOutputCap(cfg.Tools.OutputCap)

	provider := providers.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey)

	loop := agent.NewLoop(agent.Config{
		Model:          cfg.LLM.Model,
		MaxIterations:  cfg.LLM.MaxIterations,
		RequestTimeout: cfg.LLM.RequestTimeout,
		PerCallChars:   cfg.LLM.ContextTrim.PerCallChars,
		HistoryChars:   cfg.LLM.ContextTrim.HistoryChars,
		LazyLoading:    cfg.Tools.LazyLoading,
		PromptPath:     systemPromptPath(cfg),
		SkillsEndpoint: cfg.Tools.SkillsEndpoint,
		MinimalContext: cfg.LLM.MinimalContext,
	}, sessions, registry, dispatcher, perm, provider, mcpManager, logger)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		runner := agent.NewTaskRunner(loop, adapter)
		sched = scheduler.NewScheduler(taskStore, runner, logger)
		sched.Start(ctx)
		defer sched.Stop()
	}

	srv := gateway.NewServer(gateway.Deps{
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		Loop:       loop,
		Sessions:   sessions,
		Registry:   registry,
		TaskStore:  taskStore,
		Scheduler:  sched,
		MCPManager: mcpManager,
		Perm:       perm,
		Logger:     logger,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	logger.Info("relaycore serving", "host", cfg.Server.Host, "port", cfg.Server.Port)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	logger.Info("shutting down")
	return srv.Stop(context.Background())
}

// systemPromptPath resolves the on-disk system prompt template path,
// rooted alongside the workspace so a deployment can edit it without a
// rebuild. An unreadable or missing file falls back to PromptBuilder's
// built-in default template.
func systemPromptPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.Workspace.Root), "system_prompt.txt")
}
