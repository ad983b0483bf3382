// Package redact masks sensitive content before it reaches logs, status
// lines or chat messages. Every user-visible string produced by the runner
// passes through here.
package redact

import (
	"regexp"
	"strings"
)

const marker = "[redacted]"

var (
	emailRe = regexp.MustCompile(`([A-Za-z0-9._%+\-])([A-Za-z0-9._%+\-]*)@([A-Za-z0-9.\-]+\.[A-Za-z]{2,})`)
	// key=value or key: value phrases whose key names a credential.
	credKVRe = regexp.MustCompile(`(?i)\b(password|passwd|pwd|pass|secret|token|otp|api[_\-]?key)\b(\s*[:=]\s*)(\S+)`)
	// long opaque tokens: 24+ chars of base64/hex-looking material.
	tokenRe = regexp.MustCompile(`\b[A-Za-z0-9_\-]{24,}\b`)
)

// String applies all masking rules to s.
func String(s string) string {
	s = credKVRe.ReplaceAllString(s, "${1}${2}"+marker)
	s = emailRe.ReplaceAllString(s, "${1}***@${3}")
	s = tokenRe.ReplaceAllStringFunc(s, maskToken)
	return s
}

// Value masks one field value. Credential-typed values are replaced outright
// instead of partially masked.
func Value(fieldType, value string) string {
	if value == "" {
		return value
	}
	if CredentialType(fieldType) {
		return marker
	}
	return String(value)
}

// CredentialType reports whether a field type or name marks the value as a
// secret.
func CredentialType(s string) bool {
	s = strings.ToLower(s)
	for _, kw := range []string{"password", "passwd", "pwd", "token", "otp", "secret", "api-key", "api_key", "apikey"} {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func maskToken(tok string) string {
	if len(tok) <= 8 {
		return marker
	}
	return tok[:4] + "…" + tok[len(tok)-4:]
}
