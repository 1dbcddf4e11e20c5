package agent

import "github.com/relaycore/relaycore/pkg/models"

// serializedSize approximates the wire size of one message for budgeting
// purposes: role, content, and any tool-call arguments.
func serializedSize(e models.TranscriptEntry) int {
	n := len(e.Role) + len(e.Content) + len(e.ToolCallID)
	for _, tc := range e.ToolCalls {
		n += len(tc.Name) + len(tc.Arguments)
	}
	return n
}

// maxHistoryMessages caps the message count side of the prologue trim,
// independent of the char-size cap.
const maxHistoryMessages = 80

// trimHistory drops the oldest non-system entries from history until both
// the entry count is at or under maxHistoryMessages and the serialized
// size is at or under charCap, always preserving a leading system entry
// if present. This is the prologue's message-composition trim, independent
// of tools.TrimOutput which caps a single tool's output.
func trimHistory(history []models.TranscriptEntry, charCap int) []models.TranscriptEntry {
	var system *models.TranscriptEntry
	rest := history
	if len(history) > 0 && history[0].Role == models.RoleSystem {
		system = &history[0]
		rest = history[1:]
	}

	total := 0
	if system != nil {
		total = serializedSize(*system)
	}
	for _, e := range rest {
		total += serializedSize(e)
	}

	start := 0
	for start < len(rest) && (len(rest)-start > maxHistoryMessages || (charCap > 0 && total > charCap)) {
		total -= serializedSize(rest[start])
		start++
	}

	trimmed := rest[start:]
	if system == nil {
		return trimmed
	}
	out := make([]models.TranscriptEntry, 0, len(trimmed)+1)
	out = append(out, *system)
	out = append(out, trimmed...)
	return out
}
