package credentials

import (
	"regexp"
	"strings"
)

const (
	// FileExtension marks credential files inside the vault directory.
	FileExtension = ".enc"
	// maxComponentLen bounds each sanitized component so the filename stays
	// well under common 255-byte limits.
	maxComponentLen = 100

	separator = "."
)

var fileNamePattern = regexp.MustCompile(`^([A-Za-z0-9_-]+)\.([A-Za-z0-9_-]+)\.enc$`)

// Metadata identifies a stored credential. It never carries the value.
type Metadata struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
}

// Sanitize maps s onto the storage whitelist [A-Za-z0-9_-]. Every other rune,
// including '.', '/', '\\' and NUL, becomes '_'. The result is truncated to
// maxComponentLen bytes.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isSafe(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() >= maxComponentLen {
			break
		}
	}
	return b.String()
}

func isSafe(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '-' || r == '_'
}

// StorageKey returns the on-disk filename for (provider, credType). The
// separator cannot appear inside a sanitized component, so ParseStorageKey
// recovers both halves exactly.
func StorageKey(provider, credType string) string {
	return Sanitize(provider) + separator + Sanitize(credType) + FileExtension
}

// ParseStorageKey reverses StorageKey. ok is false for names that are not
// credential files (temp files, stray files, directories).
func ParseStorageKey(name string) (Metadata, bool) {
	m := fileNamePattern.FindStringSubmatch(name)
	if m == nil {
		return Metadata{}, false
	}
	return Metadata{Provider: m[1], Type: m[2]}, true
}
