package diag

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"credvault/internal/logging"
)

const cipherMarker = "CIPHERTEXT-MARKER-0001"

func setupFixture(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	vaultDir := filepath.Join(dir, "vault")
	if err := os.MkdirAll(vaultDir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vaultDir, "openai.api-key.enc"), []byte(cipherMarker), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(vaultDir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	configContent := "mediator:\n  token: s3cr3t-session\nsync:\n  endpoint: http://127.0.0.1:8787/keys\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatal(err)
	}

	logFile := filepath.Join(dir, "credvault.log")
	if err := os.WriteFile(logFile, []byte("request with Bearer abcdef123456\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	return &Config{
		ConfigPath:       configPath,
		LogFile:          logFile,
		VaultDir:         vaultDir,
		OutputPath:       filepath.Join(dir, "diag.zip"),
		IncludeLogs:      true,
		IncludeConfig:    true,
		Version:          "0.1.0-test",
		Backend:          "keyring",
		BackendAvailable: true,
	}
}

func readZIP(t *testing.T, path string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer r.Close()

	out := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = data
	}
	return out
}

func TestPackager_CreatePackage(t *testing.T) {
	cfg := setupFixture(t)
	packager := NewPackager(cfg, logging.NewLogger(logging.LevelError))

	zipPath, err := packager.CreatePackage()
	if err != nil {
		t.Fatalf("CreatePackage() error = %v", err)
	}
	if zipPath != cfg.OutputPath {
		t.Errorf("CreatePackage() = %s, want %s", zipPath, cfg.OutputPath)
	}

	info, err := os.Stat(zipPath)
	if err != nil {
		t.Fatalf("zip not created: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("zip permissions = %o, want 600", info.Mode().Perm())
	}

	files := readZIP(t, zipPath)
	for _, name := range []string{"logs/credvault.log", "config/config.yaml", "vault_inventory.json", "system_info.json", manifestName} {
		if _, ok := files[name]; !ok {
			t.Errorf("expected %s in package", name)
		}
	}

	var manifest Manifest
	if err := json.Unmarshal(files[manifestName], &manifest); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if manifest.Version != "0.1.0-test" {
		t.Errorf("manifest version = %q", manifest.Version)
	}
	if len(manifest.Files) != len(files)-1 {
		t.Errorf("manifest lists %d files, package has %d besides the manifest", len(manifest.Files), len(files)-1)
	}
	for _, mf := range manifest.Files {
		if got := CalculateSHA256(files[mf.Path]); got != mf.SHA256 {
			t.Errorf("sha256 mismatch for %s", mf.Path)
		}
	}
}

func TestPackager_NoSecretsInPackage(t *testing.T) {
	cfg := setupFixture(t)
	if _, err := NewPackager(cfg, logging.NewLogger(logging.LevelError)).CreatePackage(); err != nil {
		t.Fatal(err)
	}

	for name, data := range readZIP(t, cfg.OutputPath) {
		for _, secret := range []string{cipherMarker, "s3cr3t-session", "abcdef123456"} {
			if bytes.Contains(data, []byte(secret)) {
				t.Errorf("%s contains %q", name, secret)
			}
		}
	}
}

func TestCollectVault_Inventory(t *testing.T) {
	cfg := setupFixture(t)
	c := NewCollector(cfg, logging.NewLogger(logging.LevelError))

	files, err := c.CollectVault()
	if err != nil {
		t.Fatalf("CollectVault() error = %v", err)
	}

	var inv Inventory
	if err := json.Unmarshal(files["vault_inventory.json"], &inv); err != nil {
		t.Fatal(err)
	}
	if !inv.Exists || len(inv.Credentials) != 1 || inv.Unrecognized != 1 {
		t.Fatalf("inventory = %+v", inv)
	}
	got := inv.Credentials[0]
	if got.Provider != "openai" || got.Type != "api-key" || got.SizeBytes != int64(len(cipherMarker)) {
		t.Errorf("entry = %+v", got)
	}
}

func TestCollectVault_MissingDirectory(t *testing.T) {
	cfg := &Config{VaultDir: filepath.Join(t.TempDir(), "absent")}
	files, err := NewCollector(cfg, logging.NewLogger(logging.LevelError)).CollectVault()
	if err != nil {
		t.Fatalf("CollectVault() error = %v", err)
	}
	if !strings.Contains(string(files["vault_inventory.json"]), `"exists": false`) {
		t.Errorf("inventory = %s", files["vault_inventory.json"])
	}
}

func TestCollect_SkipsDisabledAndMissing(t *testing.T) {
	cfg := setupFixture(t)
	cfg.IncludeLogs = false
	cfg.ConfigPath = filepath.Join(t.TempDir(), "nope.yaml")
	c := NewCollector(cfg, logging.NewLogger(logging.LevelError))

	logs, err := c.CollectLogs()
	if err != nil || len(logs) != 0 {
		t.Errorf("CollectLogs() = %v, %v; want empty", logs, err)
	}
	conf, err := c.CollectConfig()
	if err != nil || len(conf) != 0 {
		t.Errorf("CollectConfig() = %v, %v; want empty", conf, err)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("1.2.3")
	if !strings.HasPrefix(cfg.OutputPath, "credvault-diag-") || !strings.HasSuffix(cfg.OutputPath, ".zip") {
		t.Errorf("OutputPath = %q", cfg.OutputPath)
	}
	if !cfg.IncludeLogs || !cfg.IncludeConfig {
		t.Error("defaults should include logs and config")
	}
}
