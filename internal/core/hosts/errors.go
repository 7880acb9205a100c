package hosts

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	ErrNoHosts              = errors.New("at least one host must be specified")
	ErrUnknownHost          = errors.New("no settings defined for host")
	ErrMissingSetting       = errors.New("required setting is not defined")
	ErrInvalidDocument      = errors.New("invalid host settings document")
	ErrSettingsFileNotFound = errors.New("host settings file not found")
	ErrHostScope            = errors.New("host-bound operation invoked for a different host")
)

// ConfigurationError reports a problem with the host settings that must abort
// the run before any remote action.
type ConfigurationError struct {
	Host    string // Host alias, if the problem is host specific
	Key     string // Setting name, if the problem is a single setting
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Host != "" && e.Key != "":
		return fmt.Sprintf("host %q: setting %q: %s", e.Host, e.Key, e.Message)
	case e.Host != "":
		return fmt.Sprintf("host %q: %s", e.Host, e.Message)
	case e.Key != "":
		return fmt.Sprintf("setting %q: %s", e.Key, e.Message)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(host, key, message string, err error) *ConfigurationError {
	return &ConfigurationError{
		Host:    host,
		Key:     key,
		Message: message,
		Err:     err,
	}
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
