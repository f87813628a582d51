package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"credvault/internal/logging"
)

const (
	// DefaultDirPermissions is the permission for private vault directories
	DefaultDirPermissions = 0o700
	// DefaultFilePermissions is the default permission for state files
	DefaultFilePermissions = 0o600

	tempMarker = ".tmp-"
)

// EnsureDirectory creates the directory if it doesn't exist. Calling it on an
// existing directory is a no-op, so callers may invoke it before every write.
func EnsureDirectory(path string, perm os.FileMode) error {
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// TempName returns the hidden sibling name used while writing path.
func TempName(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+tempMarker+uuid.NewString())
}

// IsTempName reports whether name was produced by TempName.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, tempMarker)
}

// AtomicWriteFile writes data to a uniquely named temp file in the target
// directory, syncs it and renames it over path. Readers observe either the
// old content or the new content, never a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode, logger *logging.Logger) (err error) {
	tmpPath := TempName(path)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			logger.Warn("fsutil.cleanup_failed", "Failed to remove temp file", map[string]interface{}{
				"path":  tmpPath,
				"error": removeErr.Error(),
			})
		}
	}()

	if _, err = f.Write(data); err != nil {
		CloseWithError(f.Close, logger, "temp file")
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		CloseWithError(f.Close, logger, "temp file")
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	syncDir(filepath.Dir(path), logger)
	return nil
}

// RemoveIfExists deletes path and reports whether a file was removed. A
// missing file is not an error.
func RemoveIfExists(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove file: %w", err)
	}
	return true, nil
}

// CloseWithError closes a resource and logs any error if a logger is provided.
func CloseWithError(closer func() error, logger *logging.Logger, resource string) {
	if err := closer(); err != nil {
		logger.Warn("fsutil.close_failed", fmt.Sprintf("Failed to close %s", resource), map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// syncDir flushes the directory entry so the rename survives a crash.
// Not every platform supports fsync on directories; failures are logged only.
func syncDir(dir string, logger *logging.Logger) {
	d, err := os.Open(filepath.Clean(dir))
	if err != nil {
		return
	}
	defer CloseWithError(d.Close, logger, "directory")
	if err := d.Sync(); err != nil {
		logger.Debug("fsutil.dir_sync_skipped", "Directory sync not supported", map[string]interface{}{
			"path":  dir,
			"error": err.Error(),
		})
	}
}
