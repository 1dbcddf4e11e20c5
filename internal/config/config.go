// Package config loads relaycore's YAML configuration and fills in
// sane defaults for anything left unset via a sanitize-after-decode
// pattern.
package config

import (
	"time"
)

// Config is the top-level configuration document.
type Config struct {
	Version     int               `yaml:"version"`
	Server      ServerConfig      `yaml:"server"`
	Workspace   WorkspaceConfig   `yaml:"workspace"`
	LLM         LLMConfig         `yaml:"llm"`
	Tools       ToolsConfig       `yaml:"tools"`
	MCP         MCPConfig         `yaml:"mcp"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Permissions PermissionsConfig `yaml:"permissions"`
	Adapter     AdapterConfig     `yaml:"adapter"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig configures the gateway's HTTP listener.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// WorkspaceConfig configures where per-session workspaces and their
// durable artifacts (SESSION.json, MEMORY.md.json, TODO.json, tasks.json)
// are rooted.
type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

// LLMConfig configures the OpenAI-compatible chat completions endpoint
// the agent loop calls.
type LLMConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	MaxIterations  int           `yaml:"max_iterations"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ContextTrim    ContextTrim   `yaml:"context_trim"`

	// MinimalContext marks the backend as a best-effort, tools-unaware
	// variant: the agent loop omits tool definitions from every
	// completion call and logs when it does.
	MinimalContext bool `yaml:"minimal_context"`
}

// ContextTrim configures the agent loop's two independent trim budgets:
// the per-call window sent to the LLM, and the persisted-session-history
// cap. They are tuned separately because a long tool output can blow the
// LLM's context window without needing to be kept across turns.
// PerCallChars defaults to 40,000 under MinimalContext, 50,000 otherwise,
// when left at zero.
type ContextTrim struct {
	PerCallChars int `yaml:"per_call_chars"`
	HistoryChars int `yaml:"history_chars"`
}

// ToolsConfig configures the built-in tool dispatcher and lazy loading.
type ToolsConfig struct {
	LazyLoading       bool          `yaml:"lazy_loading"`
	DispatchTimeout   time.Duration `yaml:"dispatch_timeout"`
	OutputCap         int           `yaml:"output_cap"`
	WebSearchEndpoint string        `yaml:"web_search_endpoint"`
	SkillsEndpoint    string        `yaml:"skills_endpoint"`
	ConfigPath        string        `yaml:"config_path"`
}

// MCPConfig configures the MCP bridge's persisted server list location.
type MCPConfig struct {
	ConfigDir string `yaml:"config_dir"`
}

// SchedulerConfig configures the durable task scheduler.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PermissionsConfig configures the declarative permission engine's
// on-disk override file.
type PermissionsConfig struct {
	OverridePath string `yaml:"override_path"`
}

// AdapterConfig configures the chat-platform adapter callback client
// used by the bot-only and userbot-gated tools.
type AdapterConfig struct {
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// minimalContextPerCallChars is the per-call trim budget backfilled when
// LLM.MinimalContext is set and the config file leaves per_call_chars at
// its zero value.
const minimalContextPerCallChars = 40000

// Default returns a Config with every field populated to a usable
// development default; Load overlays whatever a YAML file supplies on
// top of this rather than leaving unset fields zero-valued.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			MetricsPort: 9090,
		},
		Workspace: WorkspaceConfig{
			Root: "./data/workspaces",
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			MaxIterations:  25,
			RequestTimeout: 120 * time.Second,
			ContextTrim: ContextTrim{
				PerCallChars: 50000,
				HistoryChars: 40000,
			},
		},
		Tools: ToolsConfig{
			LazyLoading:     true,
			DispatchTimeout: 120 * time.Second,
			OutputCap:       8000,
			ConfigPath:      "./data/tools_config.json",
		},
		MCP: MCPConfig{
			ConfigDir: "./data/mcp",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
		},
		Permissions: PermissionsConfig{
			OverridePath: "./data/tool_permissions.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// sanitize fills in zero-valued fields of cfg from defaults, the way the
// teacher's sanitizeConfig pass backfills an under-specified YAML file
// instead of erroring on missing sections.
func sanitize(cfg *Config) {
	d := Default()

	if cfg.Version <= 0 {
		cfg.Version = d.Version
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = d.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = d.Server.Port
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = d.Server.MetricsPort
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = d.Workspace.Root
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = d.LLM.BaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = d.LLM.Model
	}
	if cfg.LLM.MaxIterations == 0 {
		cfg.LLM.MaxIterations = d.LLM.MaxIterations
	}
	if cfg.LLM.RequestTimeout == 0 {
		cfg.LLM.RequestTimeout = d.LLM.RequestTimeout
	}
	if cfg.LLM.ContextTrim.PerCallChars == 0 {
		if cfg.LLM.MinimalContext {
			cfg.LLM.ContextTrim.PerCallChars = minimalContextPerCallChars
		} else {
			cfg.LLM.ContextTrim.PerCallChars = d.LLM.ContextTrim.PerCallChars
		}
	}
	if cfg.LLM.ContextTrim.HistoryChars == 0 {
		cfg.LLM.ContextTrim.HistoryChars = d.LLM.ContextTrim.HistoryChars
	}
	if cfg.Tools.DispatchTimeout == 0 {
		cfg.Tools.DispatchTimeout = d.Tools.DispatchTimeout
	}
	if cfg.Tools.OutputCap == 0 {
		cfg.Tools.OutputCap = d.Tools.OutputCap
	}
	if cfg.Tools.ConfigPath == "" {
		cfg.Tools.ConfigPath = d.Tools.ConfigPath
	}
	if cfg.MCP.ConfigDir == "" {
		cfg.MCP.ConfigDir = d.MCP.ConfigDir
	}
	if cfg.Permissions.OverridePath == "" {
		cfg.Permissions.OverridePath = d.Permissions.OverridePath
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
}
