package config

import (
	"errors"
	"fmt"
)

var (
	errPortRange   = errors.New("must be in 1..65535")
	errNotPositive = errors.New("must be positive")
)

// ConfigError reports an operator-facing startup configuration problem.
type ConfigError struct {
	Field string
	Err   error
}

// Error returns the field and underlying cause.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

// Unwrap exposes the cause.
func (e *ConfigError) Unwrap() error { return e.Err }
