// Package agent implements the bounded, per-turn ReAct loop: load tools
// and a system prompt, call the LLM, dispatch any tool calls it asks for,
// and repeat until a final reply, an iteration cap, a security-violation
// cap, or a transport error ends the turn.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/relaycore/relaycore/internal/permission"
	"github.com/relaycore/relaycore/internal/session"
	"github.com/relaycore/relaycore/internal/tools"
	"github.com/relaycore/relaycore/pkg/models"
)

// defaultSecurityCap is the security-violation count that locks a session.
const defaultSecurityCap = 3

// lockMessage is returned verbatim once a session's security counter
// reaches its cap, for this turn and every turn after until /clear.
const lockMessage = "🔒 This session is locked after repeated security violations. Use /clear to reset it."

// Config holds the loop's tunables, sourced from config.LLMConfig and
// config.ToolsConfig at wiring time.
type Config struct {
	Model          string
	MaxIterations  int
	RequestTimeout time.Duration
	PerCallChars   int
	HistoryChars   int
	LazyLoading    bool
	SecurityCap    int
	PromptPath     string
	SkillsEndpoint string

	// MinimalContext marks the backend as a best-effort, tools-unaware
	// variant: tool definitions are omitted from every completion call,
	// and the per-call trim budget shrinks accordingly.
	MinimalContext bool
}

// defaultPerCallCharsFull is the per-call trim budget for a normal backend.
const defaultPerCallCharsFull = 50000

// defaultPerCallCharsMinimal is the per-call trim budget for a
// minimal-context backend.
const defaultPerCallCharsMinimal = 40000

// Loop owns everything one turn needs: the session store, the tool
// dispatcher and its registry, the permission engine, the prompt
// builder, and the LLM client.
type Loop struct {
	cfg        Config
	sessions   *session.Manager
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	perm       *permission.Resolver
	prompts    *PromptBuilder
	provider   LLMProvider
	mcp        mcpCatalogue
	logger     *slog.Logger
}

// mcpCatalogue is the subset of the MCP manager the loop needs to merge
// remote tool definitions into the non-lazy catalogue. Nil is valid (no
// MCP servers configured).
type mcpCatalogue interface {
	Cache() models.MCPToolsCache
}

// NewLoop wires a Loop. mcp may be nil.
func NewLoop(cfg Config, sessions *session.Manager, registry *tools.Registry, dispatcher *tools.Dispatcher, perm *permission.Resolver, provider LLMProvider, mcp mcpCatalogue, logger *slog.Logger) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 25
	}
	if cfg.SecurityCap <= 0 {
		cfg.SecurityCap = defaultSecurityCap
	}
	if cfg.PerCallChars <= 0 {
		if cfg.MinimalContext {
			cfg.PerCallChars = defaultPerCallCharsMinimal
		} else {
			cfg.PerCallChars = defaultPerCallCharsFull
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cfg:        cfg,
		sessions:   sessions,
		registry:   registry,
		dispatcher: dispatcher,
		perm:       perm,
		prompts:    NewPromptBuilder(cfg.PromptPath, cfg.SkillsEndpoint),
		provider:   provider,
		mcp:        mcp,
		logger:     logger.With("component", "agent"),
	}
}

// Run executes one full turn and returns the final reply text. It never
// returns a non-nil error for turn-level outcomes treated as
// "final text" (transport failure, iteration cap, security cap) — those
// are surfaced as the returned string, matching the public contract
// `run(...) -> final_text`. A non-nil error indicates a problem with the
// session itself (e.g. workspace directory creation failed).
func (l *Loop) Run(ctx context.Context, userID, chatID, message, username string, chatType models.ChatType, source models.Source) (string, error) {
	unlock := l.sessions.Lock(userID, chatID)
	defer unlock()

	sess, err := l.sessions.Get(userID, chatID, source)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}

	unlockCheck := sess.Lock()
	locked := sess.SecurityCount >= l.cfg.SecurityCap
	unlockCheck()
	if locked {
		userEntry := models.TranscriptEntry{Role: models.RoleUser, Content: message, CreatedAt: time.Now()}
		l.epilogue(sess, message, lockMessage, userEntry, nil)
		return lockMessage, nil
	}

	toolDefs := l.effectiveToolset(source)
	toolDefs = l.perm.Filter(toolDefs, chatType, source)

	systemPrompt := l.prompts.Build(ctx, sess.Workspace, userID, chatID, source, toolDefs)

	unlockFields := sess.Lock()
	history := append([]models.TranscriptEntry(nil), sess.Transcript...)
	unlockFields()

	charCap := l.cfg.PerCallChars
	windowed := trimHistory(history, charCap)

	userEntry := models.TranscriptEntry{Role: models.RoleUser, Content: message, CreatedAt: time.Now()}
	transcript := append(append([]models.TranscriptEntry{}, windowed...), userEntry)

	messages := make([]CompletionMessage, 0, len(transcript)+1)
	messages = append(messages, CompletionMessage{Role: "system", Content: systemPrompt})
	for _, e := range transcript {
		messages = append(messages, toCompletionMessage(e))
	}

	finalText, turnTranscript, runErr := l.iterate(ctx, messages, toolDefs, sess, chatType, userEntry)
	if runErr != nil {
		var transportErr *TransportError
		if asTransportError(runErr, &transportErr) {
			l.epilogue(sess, message, transportErr.Error(), userEntry, nil)
			return transportErr.Error(), nil
		}
		l.epilogue(sess, message, runErr.Error(), userEntry, nil)
		return runErr.Error(), nil
	}

	cleaned := stripResponseTags(finalText)
	l.epilogue(sess, message, cleaned, userEntry, turnTranscript)
	return cleaned, nil
}

func asTransportError(err error, target **TransportError) bool {
	te, ok := err.(*TransportError)
	if ok {
		*target = te
	}
	return ok
}

// effectiveToolset builds the prologue's initial tool list: the lazy
// base subset (or everything enabled), plus bot-only tools when source
// is bot, plus any MCP tools when not lazy-loading (lazy mode
// surfaces MCP tools only via search_tools/load_tools discovery).
func (l *Loop) effectiveToolset(source models.Source) []models.ToolDefinition {
	var defs []models.ToolDefinition

	if l.cfg.LazyLoading {
		byName := make(map[string]models.ToolDefinition)
		for _, d := range l.registry.All() {
			byName[d.Name] = d
		}
		for _, name := range tools.BaseToolNames {
			if d, ok := byName[name]; ok {
				defs = append(defs, d)
			}
		}
	} else {
		for _, d := range l.registry.All() {
			if d.Enabled {
				defs = append(defs, d)
			}
		}
		if l.mcp != nil {
			for _, d := range l.mcp.Cache().Tools {
				defs = append(defs, d)
			}
		}
	}

	if source == models.SourceBot {
		byName := make(map[string]models.ToolDefinition)
		for _, d := range l.registry.All() {
			byName[d.Name] = d
		}
		for _, name := range tools.BotOnlyToolNames {
			if d, ok := byName[name]; ok {
				defs = append(defs, d)
			}
		}
	}

	return defs
}

// iterate runs the bounded ReAct loop. It returns the final reply text
// and the transcript entries produced this turn (appended to the
// session on success), or a *TransportError / other error on failure.
func (l *Loop) iterate(ctx context.Context, messages []CompletionMessage, toolDefs []models.ToolDefinition, sess *models.Session, chatType models.ChatType, userEntry models.TranscriptEntry) (string, []models.TranscriptEntry, error) {
	turnEntries := []models.TranscriptEntry{userEntry}
	var lastToolResult *models.ToolResult

	for iteration := 0; iteration < l.cfg.MaxIterations; iteration++ {
		var toolSpecs []ToolSpec
		if l.cfg.MinimalContext {
			l.logger.Info("omitting tool definitions for minimal-context backend")
		} else {
			toolSpecs = toolSpecsFromDefinitions(toolDefs)
		}

		reqCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
		result, err := l.provider.Complete(reqCtx, &CompletionRequest{
			Model:     l.cfg.Model,
			Messages:  messages,
			Tools:     toolSpecs,
			MaxTokens: 0,
		})
		cancel()
		if err != nil {
			return "", nil, &TransportError{Cause: err}
		}

		assistantEntry := models.TranscriptEntry{
			Role:      models.RoleAssistant,
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
			CreatedAt: time.Now(),
		}
		turnEntries = append(turnEntries, assistantEntry)
		messages = append(messages, CompletionMessage{
			Role:      "assistant",
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})

		if len(result.ToolCalls) > 0 {
			tc := models.ToolContext{
				Workspace: sess.Workspace,
				SessionID: sess.UserID + ":" + sess.ChatID,
				UserID:    sess.UserID,
				ChatID:    sess.ChatID,
				ChatType:  chatType,
				Source:    sess.Source,
			}

			for _, call := range result.ToolCalls {
				args := l.repairedArguments(call)
				dispatch := l.dispatcher.Execute(ctx, call.Name, args, tc)
				lastToolResult = &dispatch.Result

				securityCount := 0
				if dispatch.SecurityViolation {
					unlockSec := sess.Lock()
					sess.SecurityCount++
					securityCount = sess.SecurityCount
					unlockSec()
				}

				if defs := loadedToolDefs(dispatch.Result); len(defs) > 0 {
					toolDefs = mergeToolDefs(toolDefs, defs)
				}

				content := dispatch.Result.Output
				if !dispatch.Result.Success {
					content = "Error: " + dispatch.Result.Error
				}
				toolEntry := models.TranscriptEntry{
					Role:       models.RoleTool,
					Content:    content,
					ToolCallID: call.ID,
					CreatedAt:  time.Now(),
				}
				turnEntries = append(turnEntries, toolEntry)
				messages = append(messages, CompletionMessage{
					Role:       "tool",
					Content:    content,
					ToolCallID: call.ID,
				})

				if securityCount >= l.cfg.SecurityCap {
					return lockMessage, turnEntries, nil
				}
			}
			continue
		}

		if strings.TrimSpace(result.Content) != "" {
			// The terminal assistant entry is appended once more by the
			// epilogue (after tag-stripping), so it isn't kept twice here.
			return result.Content, dropLast(turnEntries), nil
		}

		if strings.TrimSpace(result.ReasoningContent) != "" {
			nudge := "[system: continue — emit a tool_call or a final answer in content]"
			messages = append(messages, CompletionMessage{Role: "user", Content: nudge})
			continue
		}

		if result.FinishReason == "stop" {
			return result.Content, dropLast(turnEntries), nil
		}
	}

	return summarizeToolOutputs(lastToolResult), turnEntries, nil
}

// repairedArguments parses a tool call's raw JSON arguments, falling back
// to the ordered repair cascade on a parse failure.
func (l *Loop) repairedArguments(call models.ToolCall) json.RawMessage {
	if json.Valid(call.Arguments) {
		return call.Arguments
	}
	return tools.RepairArguments(string(call.Arguments))
}

// dropLast removes the last entry of entries, if any. Used to avoid
// double-recording the terminal assistant message, which the epilogue
// appends itself after tag-stripping.
func dropLast(entries []models.TranscriptEntry) []models.TranscriptEntry {
	if len(entries) == 0 {
		return entries
	}
	return entries[:len(entries)-1]
}

// summarizeToolOutputs is the iteration-cap fallback: when the loop exits
// without final_text, surface the last tool result verbatim if it was an
// error, else a one-line confirmation built from its output.
func summarizeToolOutputs(last *models.ToolResult) string {
	if last == nil {
		return "No final response was produced."
	}
	if !last.Success {
		return truncateOneLine(last.Error, 500)
	}
	firstLine := last.Output
	if idx := strings.IndexByte(firstLine, '\n'); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	if firstLine == "" {
		return "Done."
	}
	return truncateOneLine(firstLine, 200)
}

func truncateOneLine(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func loadedToolDefs(res models.ToolResult) []models.ToolDefinition {
	if res.Metadata == nil {
		return nil
	}
	raw, ok := res.Metadata["loaded_tools"]
	if !ok {
		return nil
	}
	defs, ok := raw.([]models.ToolDefinition)
	if !ok {
		return nil
	}
	return defs
}

func mergeToolDefs(existing []models.ToolDefinition, add []models.ToolDefinition) []models.ToolDefinition {
	have := make(map[string]bool, len(existing))
	for _, d := range existing {
		have[d.Name] = true
	}
	out := existing
	for _, d := range add {
		if !have[d.Name] {
			out = append(out, d)
			have[d.Name] = true
		}
	}
	return out
}

func toCompletionMessage(e models.TranscriptEntry) CompletionMessage {
	return CompletionMessage{
		Role:       string(e.Role),
		Content:    e.Content,
		ToolCalls:  e.ToolCalls,
		ToolCallID: e.ToolCallID,
	}
}

// stripResponseTags removes <thinking>...</thinking> blocks entirely and
// strips stray <final>/<response>/<answer> wrapper tags (keeping their
// inner text), per the epilogue's cleanup step.
func stripResponseTags(s string) string {
	s = stripBlock(s, "thinking")
	for _, tag := range []string{"final", "response", "answer"} {
		s = stripWrapperTag(s, tag)
	}
	return strings.TrimSpace(s)
}

func stripBlock(s, tag string) string {
	open := "<" + tag + ">"
	closeTag := "</" + tag + ">"
	for {
		start := strings.Index(s, open)
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], closeTag)
		if end < 0 {
			return s[:start]
		}
		s = s[:start] + s[start+end+len(closeTag):]
	}
}

func stripWrapperTag(s, tag string) string {
	open := "<" + tag + ">"
	closeTag := "</" + tag + ">"
	s = strings.ReplaceAll(s, open, "")
	s = strings.ReplaceAll(s, closeTag, "")
	return s
}

// epilogue appends the turn to the session's authoritative transcript
// and advisory snapshot, then persists the snapshot. turnEntries is nil
// when the turn ended in an error path — only the user message and the
// error text are recorded in that case, so the next turn still sees what
// was asked.
func (l *Loop) epilogue(sess *models.Session, userMessage, finalText string, userEntry models.TranscriptEntry, turnEntries []models.TranscriptEntry) {
	unlock := sess.Lock()
	if turnEntries != nil {
		sess.Transcript = append(sess.Transcript, turnEntries...)
		sess.Transcript = append(sess.Transcript, models.TranscriptEntry{
			Role: models.RoleAssistant, Content: finalText, CreatedAt: time.Now(),
		})
	} else {
		sess.Transcript = append(sess.Transcript, userEntry, models.TranscriptEntry{
			Role: models.RoleAssistant, Content: finalText, CreatedAt: time.Now(),
		})
	}
	sess.Transcript = trimHistory(sess.Transcript, l.cfg.HistoryChars)
	sess.UpdatedAt = time.Now()
	unlock()

	session.AppendTurn(sess, userMessage, finalText, time.Now())
	l.sessions.PersistSnapshot(sess)
}
