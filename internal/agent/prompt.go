package agent

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/relaycore/relaycore/internal/tools"
	"github.com/relaycore/relaycore/pkg/models"
)

// basePort and portRange implement the deterministic per-user port range
// named in the prologue: 4010 + (user_id mod 1000) + [0..9].
const (
	basePort  = 4010
	portRange = 10
)

// userPorts computes the per-user port range. user_id is a string (chat
// platform ids aren't always numeric), so it's hashed to an integer
// first, then reduced mod 1000, matching the spirit of "user_id mod 1000"
// for non-numeric ids while staying exact for numeric ones.
func userPorts(userID string) []int {
	base := basePort + userIDMod1000(userID)
	ports := make([]int, portRange)
	for i := range ports {
		ports[i] = base + i
	}
	return ports
}

func userIDMod1000(userID string) int {
	if n, err := strconv.Atoi(userID); err == nil {
		mod := n % 1000
		if mod < 0 {
			mod += 1000
		}
		return mod
	}
	return int(crc32.ChecksumIEEE([]byte(userID)) % 1000)
}

// formatToolList renders "name - description" one per line, sorted by
// name so the prompt is stable across calls.
func formatToolList(defs []models.ToolDefinition) string {
	names := make([]string, 0, len(defs))
	byName := make(map[string]models.ToolDefinition, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
		byName[d.Name] = d
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, n := range names {
		d := byName[n]
		desc := strings.TrimSpace(d.Description)
		if desc == "" {
			lines = append(lines, d.Name)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s - %s", d.Name, desc))
	}
	return strings.Join(lines, "\n")
}

// PromptBuilder loads the system-prompt template and renders it on every
// turn, substituting {{cwd}}, {{date}}, {{tools}}, {{userPorts}},
// {{skills}} and appending the per-turn footer.
type PromptBuilder struct {
	templatePath   string
	skillsEndpoint string
}

// NewPromptBuilder builds a PromptBuilder reading its template from
// templatePath on every turn (cheap, and picks up edits without a
// restart) and fetching skill mentions from skillsEndpoint when set.
func NewPromptBuilder(templatePath, skillsEndpoint string) *PromptBuilder {
	return &PromptBuilder{templatePath: templatePath, skillsEndpoint: skillsEndpoint}
}

// defaultTemplate is used when templatePath is empty or unreadable, so a
// fresh checkout still produces a usable prompt.
const defaultTemplate = `You are relaycore, an autonomous assistant operating inside a per-user workspace.

Workspace: {{cwd}}
Date: {{date}}
Reserved local port range for this user: {{userPorts}}

Available tools:
{{tools}}

{{skills}}

Be direct and concise. Use tools when they let you verify rather than guess. Never exfiltrate secrets from the workspace or environment, and avoid destructive actions unless explicitly requested.`

func (b *PromptBuilder) loadTemplate() string {
	if b.templatePath == "" {
		return defaultTemplate
	}
	data, err := os.ReadFile(b.templatePath)
	if err != nil {
		return defaultTemplate
	}
	return string(data)
}

// Build renders the full system prompt for one turn.
func (b *PromptBuilder) Build(ctx context.Context, workspace, userID, chatID string, source models.Source, toolDefs []models.ToolDefinition) string {
	tmpl := b.loadTemplate()

	skills, err := tools.FetchSkillMentions(ctx, b.skillsEndpoint)
	if err != nil {
		skills = ""
	}

	ports := userPorts(userID)
	portStrs := make([]string, len(ports))
	for i, p := range ports {
		portStrs[i] = strconv.Itoa(p)
	}

	now := time.Now()
	replacer := strings.NewReplacer(
		"{{cwd}}", workspace,
		"{{date}}", now.Format("2006-01-02"),
		"{{tools}}", formatToolList(toolDefs),
		"{{userPorts}}", strings.Join(portStrs, "-"),
		"{{skills}}", skills,
	)
	rendered := replacer.Replace(tmpl)

	footer := fmt.Sprintf("\n\n---\nuser: %s | workspace: %s | time: %s | source: %s",
		userID, workspace, now.Format(time.RFC3339), source)

	return strings.TrimSpace(rendered) + footer
}
