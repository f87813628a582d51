package config

// Config represents the complete credvault configuration
type Config struct {
	Vault      VaultConfig      `yaml:"vault"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Mediator   MediatorConfig   `yaml:"mediator"`
	Sync       SyncConfig       `yaml:"sync"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// VaultConfig locates the vault root directory
type VaultConfig struct {
	Dir string `yaml:"dir"`
}

// EncryptionConfig selects the platform encryption backend
type EncryptionConfig struct {
	Backend string `yaml:"backend"`
	Service string `yaml:"service"`
}

// MediatorConfig configures the local RPC endpoint exposed to UI callers
type MediatorConfig struct {
	Listen       string `yaml:"listen"`
	Token        string `yaml:"token"`
	RateLimitRPM int    `yaml:"rate_limit_rpm"`
	Burst        int    `yaml:"burst"`
}

// SyncConfig configures delivery to the downstream runtime process
type SyncConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Token          string `yaml:"token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Concurrency    int    `yaml:"concurrency"`
	OnChange       *bool  `yaml:"on_change"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// SyncOnChange reports whether mutations trigger a background sync.
func (s SyncConfig) SyncOnChange() bool {
	return s.OnChange != nil && *s.OnChange
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}
