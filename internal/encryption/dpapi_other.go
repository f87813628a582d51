//go:build !windows

package encryption

import "credvault/internal/logging"

func newDPAPI(string, *logging.Logger) Backend {
	return Unavailable{Reason: "dpapi backend requires windows"}
}
