package tools

import "strings"

// sensitiveTokens is checked case-insensitively; classification also
// requires the literal (case-sensitive) substring "BLOCKED" to be present.
var sensitiveTokens = []string{
	"secret", "env", "token", "key", "password", "credential", "injection",
	"/etc/passwd", "/etc/shadow", "proc/self", "base64", "exfiltration",
	"fork bomb", "rm -rf",
}

// ClassifySecurityViolation reports whether an executor's error text
// counts as a security violation: it must contain the literal, case
// sensitive substring "BLOCKED" AND at least one sensitive token matched
// case-insensitively. Plain privilege/capability errors from the sandbox
// (e.g. "BLOCKED: operation not permitted") are not violations unless a
// sensitive token is also present.
func ClassifySecurityViolation(errText string) bool {
	if !strings.Contains(errText, "BLOCKED") {
		return false
	}
	lower := strings.ToLower(errText)
	for _, tok := range sensitiveTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
