package credentials

import (
	"errors"
	"fmt"

	"credvault/internal/encryption"
)

var (
	// ErrEncryptionUnavailable means the platform primitive is unusable and
	// the store refused to write rather than degrade to plaintext.
	ErrEncryptionUnavailable = encryption.ErrUnavailable
	// ErrDecryption means stored bytes could not be decrypted.
	ErrDecryption = encryption.ErrDecryption
)

// ValidationError reports a missing or empty input field. It is raised
// before any I/O takes place.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// IOError wraps a filesystem failure during op.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("vault %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsIO reports whether err is an IOError.
func IsIO(err error) bool {
	var ioe *IOError
	return errors.As(err, &ioe)
}
