package mediator

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"credvault/internal/fsutil"
	"credvault/internal/logging"
)

// TokenFileName holds the generated session token inside the config directory.
const TokenFileName = "mediator.token"

// ReadToken returns the token stored at path.
func ReadToken(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return token, nil
}

// LoadOrCreateToken returns the token at path, generating and persisting a
// random one with owner-only permissions when none exists.
func LoadOrCreateToken(path string, logger *logging.Logger) (string, error) {
	token, err := ReadToken(path)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token = hex.EncodeToString(buf)

	if err := fsutil.EnsureDirectory(filepath.Dir(path), fsutil.DefaultDirPermissions); err != nil {
		return "", err
	}
	if err := fsutil.AtomicWriteFile(path, []byte(token+"\n"), fsutil.DefaultFilePermissions, logger); err != nil {
		return "", err
	}

	logger.Info("mediator.token.created", "Generated mediator session token", map[string]interface{}{
		"path": path,
	})
	return token, nil
}
