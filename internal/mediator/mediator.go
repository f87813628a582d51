// Package mediator is the only caller-reachable surface of the vault. It
// exposes a closed set of five operations and converts every internal failure
// into a fixed public message before it leaves the trusted process.
package mediator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"credvault/internal/credentials"
	"credvault/internal/logging"
)

// Operation names accepted by the mediator. Anything else is rejected.
const (
	OpStore       = "store"
	OpGet         = "get"
	OpDelete      = "delete"
	OpList        = "list"
	OpIsAvailable = "isAvailable"
)

var operations = map[string]bool{
	OpStore:       true,
	OpGet:         true,
	OpDelete:      true,
	OpList:        true,
	OpIsAvailable: true,
}

// IsOperation reports whether name is one of the five accepted operations.
func IsOperation(name string) bool {
	return operations[name]
}

var (
	// ErrUnknownOperation is returned by Dispatch for any method outside the closed set.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrMalformedRequest is returned by Dispatch when params do not match the operation's shape.
	ErrMalformedRequest = errors.New("malformed request")
)

// Vault is the store the mediator fronts. *credentials.Store satisfies it.
type Vault interface {
	Store(ctx context.Context, provider, credType, value string) error
	Get(ctx context.Context, provider, credType string) (string, bool, error)
	Delete(ctx context.Context, provider, credType string) error
	List(ctx context.Context) ([]credentials.Metadata, error)
	IsAvailable() bool
}

// ChangeHook is invoked after a successful store or delete.
type ChangeHook func(op string, md credentials.Metadata)

// Mediator validates requests, runs them against the vault and normalizes
// the outcome.
type Mediator struct {
	vault    Vault
	logger   *logging.Logger
	onChange ChangeHook
}

// New creates a mediator over vault.
func New(vault Vault, logger *logging.Logger) *Mediator {
	return &Mediator{
		vault:  vault,
		logger: logger,
	}
}

// OnChange registers hook to run after successful mutations. It replaces any
// previously registered hook and must be called before serving requests.
func (m *Mediator) OnChange(hook ChangeHook) {
	m.onChange = hook
}

// Store encrypts and persists a credential.
func (m *Mediator) Store(ctx context.Context, provider, credType, value string) (res Result) {
	defer m.guard(OpStore, func(msg string) { res = Result{Error: msg} })

	if err := validate(provider, credType); err != nil {
		return m.fail(OpStore, provider, credType, err)
	}
	if credentials.IsBlank(value) {
		return m.fail(OpStore, provider, credType, &credentials.ValidationError{Field: "value"})
	}

	if err := m.vault.Store(ctx, provider, credType, value); err != nil {
		return m.fail(OpStore, provider, credType, err)
	}

	m.done(OpStore, provider, credType)
	m.changed(OpStore, provider, credType)
	return Result{Success: true}
}

// Get returns the stored value. Value is nil, with Success true, when no
// credential exists for the pair.
func (m *Mediator) Get(ctx context.Context, provider, credType string) (res GetResult) {
	defer m.guard(OpGet, func(msg string) { res = GetResult{Error: msg} })

	if err := validate(provider, credType); err != nil {
		return GetResult{Error: m.fail(OpGet, provider, credType, err).Error}
	}

	value, found, err := m.vault.Get(ctx, provider, credType)
	if err != nil {
		return GetResult{Error: m.fail(OpGet, provider, credType, err).Error}
	}

	m.done(OpGet, provider, credType)
	if !found {
		return GetResult{Success: true}
	}
	return GetResult{Success: true, Value: &value}
}

// Delete removes a credential. Removing an absent credential succeeds.
func (m *Mediator) Delete(ctx context.Context, provider, credType string) (res Result) {
	defer m.guard(OpDelete, func(msg string) { res = Result{Error: msg} })

	if err := validate(provider, credType); err != nil {
		return m.fail(OpDelete, provider, credType, err)
	}

	if err := m.vault.Delete(ctx, provider, credType); err != nil {
		return m.fail(OpDelete, provider, credType, err)
	}

	m.done(OpDelete, provider, credType)
	m.changed(OpDelete, provider, credType)
	return Result{Success: true}
}

// List returns metadata for every stored credential.
func (m *Mediator) List(ctx context.Context) (res ListResult) {
	defer m.guard(OpList, func(msg string) { res = ListResult{Error: msg} })

	items, err := m.vault.List(ctx)
	if err != nil {
		return ListResult{Error: m.fail(OpList, "", "", err).Error}
	}
	if items == nil {
		items = []credentials.Metadata{}
	}

	m.logger.Debug("mediator.request", "Request completed", map[string]interface{}{
		"op":    OpList,
		"count": len(items),
	})
	return ListResult{Success: true, Credentials: items}
}

// IsAvailable reports whether the encryption backend is usable.
func (m *Mediator) IsAvailable(ctx context.Context) (res Availability) {
	defer m.guard(OpIsAvailable, func(string) { res = Availability{} })

	return Availability{Available: m.vault.IsAvailable()}
}

type credentialParams struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
}

type storeParams struct {
	Provider string `json:"provider"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

// Dispatch decodes params for method and runs it. The returned error is only
// ever ErrUnknownOperation or ErrMalformedRequest; operation failures are
// reported inside the result value.
func (m *Mediator) Dispatch(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case OpStore:
		var p storeParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return m.Store(ctx, p.Provider, p.Type, p.Value), nil
	case OpGet:
		var p credentialParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return m.Get(ctx, p.Provider, p.Type), nil
	case OpDelete:
		var p credentialParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		return m.Delete(ctx, p.Provider, p.Type), nil
	case OpList:
		if err := decodeParams(params, &struct{}{}); err != nil {
			return nil, err
		}
		return m.List(ctx), nil
	case OpIsAvailable:
		if err := decodeParams(params, &struct{}{}); err != nil {
			return nil, err
		}
		return m.IsAvailable(ctx), nil
	default:
		m.logger.Warn("mediator.request.rejected", "Unknown operation", map[string]interface{}{
			"op": method,
		})
		return nil, ErrUnknownOperation
	}
}

func (m *Mediator) fail(op, provider, credType string, err error) Result {
	msg := PublicMessage(err)
	m.logger.Warn("mediator.request.failed", "Request failed", map[string]interface{}{
		"op":       op,
		"provider": provider,
		"type":     credType,
		"error":    err.Error(),
	})
	return Result{Error: msg}
}

func (m *Mediator) done(op, provider, credType string) {
	m.logger.Debug("mediator.request", "Request completed", map[string]interface{}{
		"op":       op,
		"provider": provider,
		"type":     credType,
	})
}

func (m *Mediator) changed(op, provider, credType string) {
	if m.onChange == nil {
		return
	}
	m.onChange(op, credentials.Metadata{Provider: provider, Type: credType})
}

// guard recovers a panic inside an operation and reports it through set.
func (m *Mediator) guard(op string, set func(msg string)) {
	r := recover()
	if r == nil {
		return
	}
	m.logger.Error("mediator.panic", "Recovered panic in operation", map[string]interface{}{
		"op":    op,
		"panic": fmt.Sprint(r),
	})
	set(msgInternal)
}

func validate(provider, credType string) error {
	return credentials.RequireFields(provider, credType)
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrMalformedRequest)
	}
	return nil
}
