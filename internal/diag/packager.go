package diag

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"credvault/internal/logging"
)

const manifestName = "diag_manifest.json"

// Packager creates diagnostic ZIP packages
type Packager struct {
	config    *Config
	collector *Collector
	logger    *logging.Logger
}

// NewPackager creates a new diagnostic packager
func NewPackager(config *Config, logger *logging.Logger) *Packager {
	return &Packager{
		config:    config,
		collector: NewCollector(config, logger),
		logger:    logger,
	}
}

// CreatePackage writes the bundle to OutputPath. Collection failures are
// logged and leave the package partial.
func (p *Packager) CreatePackage() (string, error) {
	p.logger.Info("diag.package.start", "Creating diagnostic package", map[string]interface{}{
		"output": p.config.OutputPath,
	})

	allFiles := make(map[string][]byte)
	steps := []struct {
		name    string
		collect func() (map[string][]byte, error)
	}{
		{"logs", p.collector.CollectLogs},
		{"config", p.collector.CollectConfig},
		{"vault", p.collector.CollectVault},
		{"sysinfo", p.collector.CollectSystemInfo},
	}
	for _, step := range steps {
		files, err := step.collect()
		if err != nil {
			p.logger.Error("diag.package."+step.name+"_error", "Failed to collect "+step.name, map[string]interface{}{
				"error": err.Error(),
			})
		}
		for path, content := range files {
			allFiles[path] = content
		}
	}

	manifestJSON, err := json.MarshalIndent(p.createManifest(allFiles), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	allFiles[manifestName] = manifestJSON

	if err := p.createZIP(allFiles); err != nil {
		return "", fmt.Errorf("failed to create ZIP: %w", err)
	}

	p.logger.Info("diag.package.complete", "Diagnostic package created", map[string]interface{}{
		"output":     p.config.OutputPath,
		"file_count": len(allFiles),
	})
	return p.config.OutputPath, nil
}

func (p *Packager) createManifest(files map[string][]byte) *Manifest {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	manifest := &Manifest{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Host:      hostname,
		Version:   p.config.Version,
		Files:     make([]ManifestFile, 0, len(files)),
	}
	for _, path := range sortedNames(files) {
		manifest.Files = append(manifest.Files, ManifestFile{
			Path:      path,
			SizeBytes: int64(len(files[path])),
			SHA256:    CalculateSHA256(files[path]),
		})
	}
	return manifest
}

func (p *Packager) createZIP(files map[string][]byte) (err error) {
	zipFile, err := os.OpenFile(p.config.OutputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := zipFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	zipWriter := zip.NewWriter(zipFile)
	for _, path := range sortedNames(files) {
		w, createErr := zipWriter.Create(path)
		if createErr != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("add %s: %w", path, createErr)
		}
		if _, writeErr := w.Write(files[path]); writeErr != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("write %s: %w", path, writeErr)
		}
	}
	return zipWriter.Close()
}

func sortedNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
