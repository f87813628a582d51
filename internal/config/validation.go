package config

import (
	"fmt"
	"net"
	"net/url"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateVault()...)
	errors = append(errors, c.validateEncryption()...)
	errors = append(errors, c.validateMediator()...)
	errors = append(errors, c.validateSync()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateVault() []ValidationError {
	if c.Vault.Dir != "" {
		return nil
	}
	return []ValidationError{{Path: "vault.dir", Message: "must not be empty"}}
}

func (c *Config) validateEncryption() []ValidationError {
	var errors []ValidationError

	validBackends := []string{BackendAuto, BackendKeyring, BackendDPAPI}
	if !contains(validBackends, c.Encryption.Backend) {
		errors = append(errors, ValidationError{
			Path:    "encryption.backend",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validBackends, c.Encryption.Backend),
		})
	}

	if c.Encryption.Service == "" {
		errors = append(errors, ValidationError{Path: "encryption.service", Message: "must not be empty"})
	}

	return errors
}

func (c *Config) validateMediator() []ValidationError {
	var errors []ValidationError

	host, _, err := net.SplitHostPort(c.Mediator.Listen)
	if err != nil {
		errors = append(errors, ValidationError{
			Path:    "mediator.listen",
			Message: fmt.Sprintf("invalid address '%s': %v", c.Mediator.Listen, err),
		})
	} else if !isLoopbackHost(host) {
		errors = append(errors, ValidationError{
			Path:    "mediator.listen",
			Message: fmt.Sprintf("must bind a loopback address, got '%s'", host),
		})
	}

	if c.Mediator.RateLimitRPM < 1 {
		errors = append(errors, ValidationError{
			Path:    "mediator.rate_limit_rpm",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Mediator.RateLimitRPM),
		})
	}

	if c.Mediator.Burst < 1 {
		errors = append(errors, ValidationError{
			Path:    "mediator.burst",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Mediator.Burst),
		})
	}

	return errors
}

func (c *Config) validateSync() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.Sync.Endpoint)
	switch {
	case err != nil:
		errors = append(errors, ValidationError{
			Path:    "sync.endpoint",
			Message: fmt.Sprintf("invalid URL '%s': %v", c.Sync.Endpoint, err),
		})
	case u.Scheme != "http" && u.Scheme != "https":
		errors = append(errors, ValidationError{
			Path:    "sync.endpoint",
			Message: fmt.Sprintf("scheme must be http or https, got '%s'", u.Scheme),
		})
	case !isLoopbackHost(u.Hostname()):
		errors = append(errors, ValidationError{
			Path:    "sync.endpoint",
			Message: fmt.Sprintf("must target a loopback host, got '%s'", u.Hostname()),
		})
	}

	if c.Sync.TimeoutSeconds < 1 || c.Sync.TimeoutSeconds > 60 {
		errors = append(errors, ValidationError{
			Path:    "sync.timeout_seconds",
			Message: fmt.Sprintf("must be between 1 and 60, got %d", c.Sync.TimeoutSeconds),
		})
	}

	if c.Sync.Concurrency < 1 {
		errors = append(errors, ValidationError{
			Path:    "sync.concurrency",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Sync.Concurrency),
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		errors = append(errors, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
		})
	}

	validFormats := []string{"json"}
	if !contains(validFormats, c.Logging.Format) {
		errors = append(errors, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validFormats, c.Logging.Format),
		})
	}

	return errors
}

// contains checks if a string is in a slice
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// isLoopbackHost accepts "localhost" and loopback IP literals only
func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
