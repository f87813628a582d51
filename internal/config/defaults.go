package config

import "credvault/internal/configdir"

const (
	// BackendAuto picks the native backend for the running OS.
	BackendAuto = "auto"
	// BackendKeyring uses the OS keyring to hold the vault master key.
	BackendKeyring = "keyring"
	// BackendDPAPI uses the Windows Data Protection API.
	BackendDPAPI = "dpapi"

	// DefaultService is the keyring service name owning the master key.
	DefaultService = "credvault"
	// DefaultListen is the mediator's loopback listen address.
	DefaultListen = "127.0.0.1:47821"
	// DefaultSyncEndpoint is the downstream runtime's ingestion endpoint.
	DefaultSyncEndpoint = "http://127.0.0.1:8765/api/credentials"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	onChange := false
	return Config{
		Vault: VaultConfig{
			Dir: configdir.VaultDir(),
		},
		Encryption: EncryptionConfig{
			Backend: BackendAuto,
			Service: DefaultService,
		},
		Mediator: MediatorConfig{
			Listen:       DefaultListen,
			RateLimitRPM: 600,
			Burst:        20,
		},
		Sync: SyncConfig{
			Endpoint:       DefaultSyncEndpoint,
			TimeoutSeconds: 5,
			Concurrency:    4,
			OnChange:       &onChange,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
