package credentials

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"openai", "openai"},
		{"api-key", "api-key"},
		{"my_provider", "my_provider"},
		{"../../etc/passwd", "______etc_passwd"},
		{"/", "_"},
		{"a\x00b", "a_b"},
		{"x.y", "x_y"},
		{"ü", "_"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitize_Truncates(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 300))
	if len(got) != maxComponentLen {
		t.Errorf("len(Sanitize(300 chars)) = %d, want %d", len(got), maxComponentLen)
	}
}

func TestStorageKey_RoundTrip(t *testing.T) {
	key := StorageKey("openai", "api-key")
	if key != "openai.api-key.enc" {
		t.Fatalf("StorageKey() = %q", key)
	}

	md, ok := ParseStorageKey(key)
	if !ok {
		t.Fatal("ParseStorageKey() ok = false")
	}
	if md.Provider != "openai" || md.Type != "api-key" {
		t.Errorf("ParseStorageKey() = %+v", md)
	}
}

func TestParseStorageKey_Rejects(t *testing.T) {
	for _, name := range []string{
		"README.txt",
		"openai.enc",
		"a.b.c.enc",
		".openai.api-key.enc.tmp-1234",
		"openai.api-key.enc.bak",
		"",
	} {
		if _, ok := ParseStorageKey(name); ok {
			t.Errorf("ParseStorageKey(%q) ok = true, want false", name)
		}
	}
}
