package logging

import (
	"regexp"
)

// Redactor scrubs credential-looking substrings from log text.
type Redactor struct {
	patterns []redactionPattern
}

type redactionPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor with common secret patterns
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactionPattern{
			// Environment variables with secrets (must come first)
			{
				regex:       regexp.MustCompile(`(?i)export\s+([A-Z_]*(?:KEY|TOKEN|SECRET|PASSWORD)[A-Z_]*)\s*=\s*["']?([^"'\s]+)["']?`),
				replacement: `export $1=[REDACTED]`,
			},
			{
				regex:       regexp.MustCompile(`(?i)(^|[^A-Z_])(api[_-]?key|token|secret|password)\s*[:=]\s*["']?([^"'\s]+)["']?`),
				replacement: `$1$2: [REDACTED]`,
			},
			{
				regex:       regexp.MustCompile(`(?i)Bearer\s+([A-Za-z0-9_\-\.]+)`),
				replacement: `Bearer [REDACTED]`,
			},
			{
				regex:       regexp.MustCompile(`(?i)Authorization:\s*Basic\s+([A-Za-z0-9+/=]+)`),
				replacement: `Authorization: Basic [REDACTED]`,
			},
			// Provider key shapes (sk-..., sk-ant-..., AIza...)
			{
				regex:       regexp.MustCompile(`\b(sk-[A-Za-z0-9_\-]{6,}|AIza[0-9A-Za-z_\-]{20,})`),
				replacement: `[REDACTED]`,
			},
		},
	}
}

// Redact applies all redaction patterns to the input text
func (r *Redactor) Redact(input string) string {
	result := input
	for _, pattern := range r.patterns {
		result = pattern.regex.ReplaceAllString(result, pattern.replacement)
	}
	return result
}
