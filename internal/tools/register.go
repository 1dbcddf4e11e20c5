package tools

import "github.com/relaycore/relaycore/internal/scheduler"

// RegisterAll wires every built-in tool family into reg. adapter may be a
// client with an empty BaseURL, in which case the bot-only and
// userbot-gated tools resolve but report "adapter not configured" until
// one is supplied from config. scheduler may be nil, in which case
// schedule_task reports "scheduler not configured".
func RegisterAll(reg *Registry, adapter *AdapterClient, taskStore *scheduler.Store) {
	if adapter == nil {
		adapter = NewAdapterClient("")
	}
	RegisterFileTools(reg)
	RegisterExecTools(reg)
	RegisterWebTools(reg)
	RegisterMemoryTools(reg)
	RegisterTaskTools(reg)
	RegisterScheduleTool(reg, taskStore)
	RegisterDiscoveryTools(reg)
	RegisterSkillTools(reg)
	RegisterBotTools(reg, adapter)
	RegisterTelegramTools(reg, adapter)
}
