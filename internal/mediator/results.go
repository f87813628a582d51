package mediator

import (
	"context"
	"errors"

	"credvault/internal/credentials"
)

// Result is the outcome of store and delete.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GetResult is the outcome of get. Value is null when nothing is stored.
type GetResult struct {
	Success bool    `json:"success"`
	Value   *string `json:"value"`
	Error   string  `json:"error,omitempty"`
}

// ListResult is the outcome of list. It never carries values.
type ListResult struct {
	Success     bool                   `json:"success"`
	Credentials []credentials.Metadata `json:"credentials"`
	Error       string                 `json:"error,omitempty"`
}

// Availability is the outcome of isAvailable.
type Availability struct {
	Available bool `json:"available"`
}

const (
	msgEncryptionUnavailable = "encryption is not available on this system"
	msgDecryption            = "stored credential could not be decrypted"
	msgStorage               = "credential storage failed"
	msgCancelled             = "request cancelled"
	msgInternal              = "internal error"
)

// PublicMessage maps err onto a fixed string that is safe to hand to a
// less-trusted caller. Paths and wrapped error text never pass through.
func PublicMessage(err error) string {
	var ve *credentials.ValidationError
	switch {
	case errors.As(err, &ve):
		return "validation failed: " + ve.Error()
	case errors.Is(err, credentials.ErrEncryptionUnavailable):
		return msgEncryptionUnavailable
	case errors.Is(err, credentials.ErrDecryption):
		return msgDecryption
	case credentials.IsIO(err):
		return msgStorage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return msgCancelled
	default:
		return msgInternal
	}
}
