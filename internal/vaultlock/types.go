package vaultlock

import "time"

// Owner identifies the process serving a vault.
type Owner struct {
	PID    int    `json:"pid"`
	Listen string `json:"listen"`
}

// LockInfo represents the lease file contents
type LockInfo struct {
	Owner     Owner     `json:"owner"`
	SinceTS   time.Time `json:"since_ts"`
	RenewedTS time.Time `json:"renewed_ts"`
}

// Held reports whether info names an owner.
func (i *LockInfo) Held() bool {
	return i != nil && i.Owner.PID != 0
}
