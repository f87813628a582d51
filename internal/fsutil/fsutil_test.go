package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"credvault/internal/logging"
)

func TestEnsureDirectory(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates new directory",
			setup: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "newdir")
			},
		},
		{
			name: "succeeds if directory exists",
			setup: func(t *testing.T) string {
				t.Helper()
				dir := filepath.Join(t.TempDir(), "existingdir")
				if err := os.MkdirAll(dir, 0o700); err != nil {
					t.Fatalf("setup failed: %v", err)
				}
				return dir
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "a", "b", "c")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)

			if err := EnsureDirectory(path, DefaultDirPermissions); err != nil {
				t.Fatalf("EnsureDirectory() error = %v", err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("directory not created: %v", err)
			}
			if !info.IsDir() {
				t.Errorf("path is not a directory")
			}
		})
	}
}

func TestAtomicWriteFile(t *testing.T) {
	logger := logging.New("test", logging.LevelWarn)

	tests := []struct {
		name  string
		setup func(t *testing.T) (string, []byte)
	}{
		{
			name: "writes new file atomically",
			setup: func(t *testing.T) (string, []byte) {
				t.Helper()
				return filepath.Join(t.TempDir(), "test.enc"), []byte("test content")
			},
		},
		{
			name: "overwrites existing file",
			setup: func(t *testing.T) (string, []byte) {
				t.Helper()
				path := filepath.Join(t.TempDir(), "existing.enc")
				_ = os.WriteFile(path, []byte("old content"), 0o600)
				return path, []byte("new content")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, data := tt.setup(t)

			if err := AtomicWriteFile(path, data, DefaultFilePermissions, logger); err != nil {
				t.Fatalf("AtomicWriteFile() error = %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read file: %v", err)
			}
			if string(got) != string(data) {
				t.Errorf("file content = %q, want %q", got, data)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("stat failed: %v", err)
			}
			if info.Mode().Perm() != DefaultFilePermissions {
				t.Errorf("permissions = %o, want %o", info.Mode().Perm(), DefaultFilePermissions)
			}

			entries, err := os.ReadDir(filepath.Dir(path))
			if err != nil {
				t.Fatalf("read dir failed: %v", err)
			}
			for _, e := range entries {
				if IsTempName(e.Name()) {
					t.Errorf("temp file still exists: %s", e.Name())
				}
			}
		})
	}
}

func TestAtomicWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "file.enc")

	if err := AtomicWriteFile(path, []byte("data"), DefaultFilePermissions, nil); err == nil {
		t.Fatal("expected error when parent directory is missing")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("target should not exist after failed write")
	}
}

func TestTempName(t *testing.T) {
	path := filepath.Join("vault", "openai.api-key.enc")

	a := TempName(path)
	b := TempName(path)

	if a == b {
		t.Error("TempName should be unique per call")
	}
	if filepath.Dir(a) != "vault" {
		t.Errorf("TempName dir = %q, want vault", filepath.Dir(a))
	}
	if !IsTempName(filepath.Base(a)) {
		t.Errorf("IsTempName(%q) = false", filepath.Base(a))
	}
	if IsTempName("openai.api-key.enc") {
		t.Error("IsTempName should be false for a credential file")
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.enc")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	removed, err := RemoveIfExists(path)
	if err != nil || !removed {
		t.Fatalf("first RemoveIfExists() = %v, %v; want true, nil", removed, err)
	}

	removed, err = RemoveIfExists(path)
	if err != nil || removed {
		t.Fatalf("second RemoveIfExists() = %v, %v; want false, nil", removed, err)
	}
}

func TestCloseWithError(t *testing.T) {
	logger := logging.New("test", logging.LevelError)

	tests := []struct {
		name   string
		closer func() error
	}{
		{"successful close", func() error { return nil }},
		{"close with error", func() error { return os.ErrClosed }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Should not panic
			CloseWithError(tt.closer, logger, "test_resource")
			CloseWithError(tt.closer, nil, "test_resource")
		})
	}
}
