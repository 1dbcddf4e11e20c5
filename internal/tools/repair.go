package tools

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RepairArguments attempts to coerce a possibly-malformed tool-call
// arguments string into valid JSON, trying each strategy in order and
// stopping at the first that parses. Grounded on the original agent's
// try_fix_json_args cascade. Returns "{}" if every strategy fails, per
// the Parse-failure handling in the error taxonomy — executors are
// required to tolerate missing fields.
func RepairArguments(raw string) json.RawMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}

	current := raw
	for _, repair := range []func(string) (string, bool){
		stripTrailingCommas,
		singleToDoubleQuotes,
		extractFencedBlock,
		firstBraceToLastBrace,
		keyValueRegex,
	} {
		if fixed, ok := repair(current); ok {
			current = fixed
			if json.Valid([]byte(current)) {
				return json.RawMessage(current)
			}
		}
	}

	return json.RawMessage("{}")
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

func stripTrailingCommas(s string) (string, bool) {
	fixed := trailingCommaRe.ReplaceAllString(s, "$1")
	return fixed, fixed != s
}

func singleToDoubleQuotes(s string) (string, bool) {
	if strings.Contains(s, `"`) {
		return s, false
	}
	if !strings.Contains(s, "'") {
		return s, false
	}
	return strings.ReplaceAll(s, "'", `"`), true
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

func extractFencedBlock(s string) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(s)
	if m == nil {
		return s, false
	}
	return strings.TrimSpace(m[1]), true
}

func firstBraceToLastBrace(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < 0 || end < start {
		return s, false
	}
	return s[start : end+1], true
}

var keyValueRe = regexp.MustCompile(`"?([A-Za-z_][A-Za-z0-9_]*)"?\s*:\s*("(?:[^"\\]|\\.)*"|-?\d+(?:\.\d+)?|true|false|null)`)

// keyValueRegex is the last-resort repair: scrape key:value pairs out of
// whatever text remains and rebuild a flat JSON object from them.
func keyValueRegex(s string) (string, bool) {
	matches := keyValueRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return s, false
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, m := range matches {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(m[1])
		b.Write(key)
		b.WriteByte(':')
		b.WriteString(m[2])
	}
	b.WriteByte('}')
	return b.String(), true
}
