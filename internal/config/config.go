package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"credvault/internal/configdir"
)

const configFile = "config.yaml"

// Load loads the configuration from the config directory.
// Priority: defaults < <configdir>/config.yaml
func Load() (Config, error) {
	cfg := DefaultConfig()

	if err := mergeConfigFile(&cfg, Path()); err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		// Missing config file is OK, continue with defaults
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// LoadFrom loads configuration from a specific file path
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := mergeConfigFile(&cfg, path); err != nil {
		return cfg, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// Path returns the path to the configuration file
func Path() string {
	return filepath.Join(configdir.ConfigDir(), configFile)
}

// mergeConfigFile reads a YAML file and merges it into the existing config
func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path is from config dir or CLI flag
	if err != nil {
		return err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfig(cfg, &overlay)
	return nil
}

// mergeConfig merges non-zero values from src into dst
func mergeConfig(dst, src *Config) {
	if src.Vault.Dir != "" {
		dst.Vault.Dir = src.Vault.Dir
	}

	if src.Encryption.Backend != "" {
		dst.Encryption.Backend = src.Encryption.Backend
	}
	if src.Encryption.Service != "" {
		dst.Encryption.Service = src.Encryption.Service
	}

	if src.Mediator.Listen != "" {
		dst.Mediator.Listen = src.Mediator.Listen
	}
	if src.Mediator.Token != "" {
		dst.Mediator.Token = src.Mediator.Token
	}
	if src.Mediator.RateLimitRPM != 0 {
		dst.Mediator.RateLimitRPM = src.Mediator.RateLimitRPM
	}
	if src.Mediator.Burst != 0 {
		dst.Mediator.Burst = src.Mediator.Burst
	}

	if src.Sync.Endpoint != "" {
		dst.Sync.Endpoint = src.Sync.Endpoint
	}
	if src.Sync.Token != "" {
		dst.Sync.Token = src.Sync.Token
	}
	if src.Sync.TimeoutSeconds != 0 {
		dst.Sync.TimeoutSeconds = src.Sync.TimeoutSeconds
	}
	if src.Sync.Concurrency != 0 {
		dst.Sync.Concurrency = src.Sync.Concurrency
	}
	// Pointer so an explicit "false" in YAML is distinguishable from unset
	if src.Sync.OnChange != nil {
		dst.Sync.OnChange = src.Sync.OnChange
	}

	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
	if src.Logging.File != "" {
		dst.Logging.File = src.Logging.File
	}
}

// formatValidationErrors formats validation errors for display
func formatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	if len(errors) == 1 {
		return errors[0].Error()
	}
	result := fmt.Sprintf("%d validation errors:\n", len(errors))
	for _, err := range errors {
		result += "  - " + err.Error() + "\n"
	}
	return result
}
