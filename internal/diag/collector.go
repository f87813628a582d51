// Package diag builds support bundles. Credential files are described by
// name and size only; their contents never enter a bundle.
package diag

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"credvault/internal/credentials"
	"credvault/internal/logging"
)

// Collector gathers diagnostic artifacts
type Collector struct {
	config   *Config
	redactor *logging.Redactor
	logger   *logging.Logger
}

// NewCollector creates a new diagnostic collector
func NewCollector(config *Config, logger *logging.Logger) *Collector {
	return &Collector{
		config:   config,
		redactor: logging.NewRedactor(),
		logger:   logger,
	}
}

// CollectLogs includes the configured log file, redacted again on the way out.
func (c *Collector) CollectLogs() (map[string][]byte, error) {
	files := make(map[string][]byte)
	if !c.config.IncludeLogs || c.config.LogFile == "" {
		return files, nil
	}

	content, err := os.ReadFile(c.config.LogFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("diag.collect.logs.missing", "Log file not found", map[string]interface{}{
				"path": c.config.LogFile,
			})
			return files, nil
		}
		return files, fmt.Errorf("failed to read log file: %w", err)
	}

	files["logs/"+filepath.Base(c.config.LogFile)] = []byte(c.redactor.Redact(string(content)))
	return files, nil
}

// CollectConfig gathers and redacts the configuration file
func (c *Collector) CollectConfig() (map[string][]byte, error) {
	files := make(map[string][]byte)
	if !c.config.IncludeConfig || c.config.ConfigPath == "" {
		return files, nil
	}

	content, err := os.ReadFile(c.config.ConfigPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("diag.collect.config.missing", "Config file not found", map[string]interface{}{
				"path": c.config.ConfigPath,
			})
			return files, nil
		}
		return files, fmt.Errorf("failed to read config: %w", err)
	}

	files["config/config.yaml"] = []byte(c.redactor.Redact(string(content)))
	return files, nil
}

// CollectVault lists the vault directory by filename and stat only.
func (c *Collector) CollectVault() (map[string][]byte, error) {
	files := make(map[string][]byte)
	inv := Inventory{Dir: c.config.VaultDir, Credentials: []InventoryEntry{}}

	entries, err := os.ReadDir(c.config.VaultDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return files, fmt.Errorf("failed to read vault directory: %w", err)
	default:
		inv.Exists = true
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			md, ok := credentials.ParseStorageKey(e.Name())
			if !ok {
				inv.Unrecognized++
				continue
			}
			entry := InventoryEntry{Provider: md.Provider, Type: md.Type}
			if info, err := e.Info(); err == nil {
				entry.SizeBytes = info.Size()
				entry.Modified = info.ModTime().UTC()
			}
			inv.Credentials = append(inv.Credentials, entry)
		}
	}

	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return files, fmt.Errorf("failed to marshal inventory: %w", err)
	}
	files["vault_inventory.json"] = data
	return files, nil
}

// CollectSystemInfo gathers host, runtime and backend information
func (c *Collector) CollectSystemInfo() (map[string][]byte, error) {
	files := make(map[string][]byte)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	sysInfo := map[string]interface{}{
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
		"host":              hostname,
		"os":                runtime.GOOS,
		"arch":              runtime.GOARCH,
		"go_version":        runtime.Version(),
		"credvault_version": c.config.Version,
		"backend":           c.config.Backend,
		"backend_available": c.config.BackendAvailable,
	}

	data, err := json.MarshalIndent(sysInfo, "", "  ")
	if err != nil {
		return files, fmt.Errorf("failed to marshal system info: %w", err)
	}
	files["system_info.json"] = data
	return files, nil
}

// CalculateSHA256 computes SHA256 hash of data
func CalculateSHA256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
