package configdir

import (
	"os"
	"path/filepath"
)

const (
	appName   = "credvault"
	envConfig = "CREDVAULT_CONFIG_DIR"
)

// ConfigDir resolves the configuration directory respecting overrides.
// Order: $CREDVAULT_CONFIG_DIR, the per-user config dir, ./.credvault.
func ConfigDir() string {
	if env := os.Getenv(envConfig); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
		return env
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return "." + appName
}

// VaultDir is the default vault root inside the config directory.
func VaultDir() string {
	return filepath.Join(ConfigDir(), "vault")
}
