// Package storage reads the flat key/value settings of audit log backends
// and reports invalid ones.
package storage

import "fmt"

// ConfigError reports a backend setting that could not be used.
type ConfigError struct {
	Backend string
	Key     string
	Value   string
	Reason  string
	Cause   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Key == "":
		return fmt.Sprintf("%s: %s", e.Backend, e.Reason)
	case e.Value == "":
		return fmt.Sprintf("%s: %s: %s", e.Backend, e.Key, e.Reason)
	default:
		return fmt.Sprintf("%s: %s=%q: %s", e.Backend, e.Key, e.Value, e.Reason)
	}
}

func (e *ConfigError) Unwrap() error { return e.Cause }
