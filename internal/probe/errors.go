package probe

import (
	"errors"
	"fmt"
)

// ConfigError reports caller misuse: a malformed proxy descriptor or request
// spec. It is returned before any network activity and is never folded into
// an Unreachable result.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// ProxyConnectError is a CONNECT answered with a non-200 status. Status is
// the full status line as sent, so provider-specific reason phrases survive.
type ProxyConnectError struct {
	StatusCode int
	Status     string
}

func (e *ProxyConnectError) Error() string {
	return "proxy CONNECT answered " + e.Status
}
