package diag

import "time"

// Manifest represents the diagnostic package manifest
type Manifest struct {
	Timestamp string         `json:"timestamp"`
	Host      string         `json:"host"`
	Version   string         `json:"credvault_version"`
	Files     []ManifestFile `json:"files"`
}

// ManifestFile represents a file in the diagnostic package
type ManifestFile struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	SHA256    string `json:"sha256"`
}

// InventoryEntry describes one stored credential without its contents.
type InventoryEntry struct {
	Provider  string    `json:"provider"`
	Type      string    `json:"type"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified"`
}

// Inventory is the vault listing written to the package.
type Inventory struct {
	Dir          string           `json:"dir"`
	Exists       bool             `json:"exists"`
	Credentials  []InventoryEntry `json:"credentials"`
	Unrecognized int              `json:"unrecognized_files"`
}

// Config configures diagnostic collection
type Config struct {
	ConfigPath    string
	LogFile       string
	VaultDir      string
	OutputPath    string
	IncludeLogs   bool
	IncludeConfig bool
	Version       string

	Backend          string
	BackendAvailable bool
}

// NewConfig creates a default diagnostic config
func NewConfig(version string) *Config {
	return &Config{
		OutputPath:    generateOutputPath(),
		IncludeLogs:   true,
		IncludeConfig: true,
		Version:       version,
	}
}

func generateOutputPath() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return "credvault-diag-" + timestamp + ".zip"
}
