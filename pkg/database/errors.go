package database

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRows is returned by Get when the query matched nothing.
	ErrNoRows = errors.New("database: no rows in result set")

	// ErrUnparseable marks a connection string that is not URL shaped.
	// Open hands such strings to the driver untouched.
	ErrUnparseable = errors.New("database: connection string is not a URL")
)

// QueryError wraps any driver level failure: constraint violations,
// connection loss, syntax errors.
type QueryError struct {
	Op    string
	Cause error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("database: %s: %v", e.Op, e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// ConfigurationError reports a connection descriptor that cannot select a store.
type ConfigurationError struct {
	Reason string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("database: invalid configuration: %s: %v", e.Reason, e.Cause)
	}
	return "database: invalid configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// IsQueryError reports whether err carries a QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
