package encryption

import (
	"errors"
	"runtime"
	"testing"

	"github.com/zalando/go-keyring"

	"credvault/internal/logging"
)

func TestUnavailable(t *testing.T) {
	u := Unavailable{Reason: "no keyring"}

	if u.IsAvailable() {
		t.Error("IsAvailable() = true")
	}
	if _, err := u.Encrypt("x"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Encrypt() error = %v, want ErrUnavailable", err)
	}
	if _, err := u.Decrypt([]byte{1}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Decrypt() error = %v, want ErrUnavailable", err)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	keyring.MockInit()
	logger := logging.NewLogger(logging.LevelError)

	tests := []struct {
		kind string
		want string
	}{
		{"keyring", "keyring"},
		{"bogus", "unavailable"},
	}
	if runtime.GOOS == "windows" {
		tests = append(tests, struct{ kind, want string }{"auto", "dpapi"}, struct{ kind, want string }{"dpapi", "dpapi"})
	} else {
		tests = append(tests, struct{ kind, want string }{"auto", "keyring"}, struct{ kind, want string }{"dpapi", "unavailable"})
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := New(tt.kind, "credvault-test", logger).Name(); got != tt.want {
				t.Errorf("New(%q).Name() = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}
