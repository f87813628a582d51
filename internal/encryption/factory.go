package encryption

import (
	"runtime"

	"credvault/internal/logging"
)

// New returns the backend named by kind. "auto" picks DPAPI on Windows and
// the OS keyring everywhere else. Unknown kinds yield an Unavailable backend
// so that callers fail closed instead of storing plaintext.
func New(kind, service string, logger *logging.Logger) Backend {
	var b Backend
	switch kind {
	case "auto", "":
		if runtime.GOOS == "windows" {
			b = newDPAPI(service, logger)
		} else {
			b = NewKeyring(service, logger)
		}
	case "keyring":
		b = NewKeyring(service, logger)
	case "dpapi":
		b = newDPAPI(service, logger)
	default:
		b = Unavailable{Reason: "unknown encryption backend: " + kind}
	}

	logger.Debug("encryption.backend.selected", "Encryption backend selected", map[string]interface{}{
		"requested": kind,
		"backend":   b.Name(),
		"os":        runtime.GOOS,
	})
	return b
}
