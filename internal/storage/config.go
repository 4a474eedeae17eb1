package storage

import (
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// KeyDataDir is set by callers to the process data directory so backends
// can resolve relative paths against it.
const KeyDataDir = "data_dir"

// Settings is the configuration of one named backend. Empty values count
// as unset.
type Settings struct {
	backend string
	values  map[string]string
}

// NewSettings wraps values for the named backend. values may be nil.
func NewSettings(backend string, values map[string]string) Settings {
	return Settings{backend: backend, values: values}
}

// Merge layers maps left to right into a new map; later layers win.
func Merge(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, l := range layers {
		maps.Copy(out, l)
	}
	return out
}

// Backend returns the backend name used in errors.
func (s Settings) Backend() string { return s.backend }

func (s Settings) raw(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok && v != ""
}

// String returns the value of key or def.
func (s Settings) String(key, def string) string {
	if v, ok := s.raw(key); ok {
		return v
	}
	return def
}

// Required returns the value of key or an error when it is unset.
func (s Settings) Required(key string) (string, error) {
	v, ok := s.raw(key)
	if !ok {
		return "", s.Invalid(key, "cannot be empty")
	}
	return v, nil
}

// Bool accepts true/false, 1/0 and yes/no in any case.
func (s Settings) Bool(key string, def bool) (bool, error) {
	v, ok := s.raw(key)
	if !ok {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, s.Invalid(key, "must be a boolean (true/false, 1/0, yes/no)")
}

// Int parses key as a decimal integer no smaller than min.
func (s Settings) Int(key string, def, min int) (int, error) {
	v, ok := s.raw(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, s.Fail(key, "must be an integer", err)
	}
	if n < min {
		return 0, s.Invalid(key, "must be at least "+strconv.Itoa(min))
	}
	return n, nil
}

// Duration accepts Go durations ("5s", "1m30s") or whole seconds.
func (s Settings) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := s.raw(key)
	if !ok {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, s.Invalid(key, "must be a duration (e.g. 5s, 1m30s) or integer seconds")
}

// Path returns the required path at key with ~ expanded. Relative paths
// are joined to the data_dir setting when present.
func (s Settings) Path(key string) (string, error) {
	p, err := s.Required(key)
	if err != nil {
		return "", err
	}
	p = ExpandPath(p)
	if filepath.IsAbs(p) {
		return p, nil
	}
	if dir, ok := s.raw(KeyDataDir); ok {
		return filepath.Join(ExpandPath(dir), p), nil
	}
	return p, nil
}

// Invalid reports a bad value for key, quoting the configured value.
func (s Settings) Invalid(key, reason string) *ConfigError {
	v, _ := s.raw(key)
	return &ConfigError{Backend: s.backend, Key: key, Value: v, Reason: reason}
}

// Fail reports that key was well-formed but using it failed. An empty key
// marks a failure of the backend as a whole.
func (s Settings) Fail(key, reason string, cause error) *ConfigError {
	v, _ := s.raw(key)
	return &ConfigError{Backend: s.backend, Key: key, Value: v, Reason: reason, Cause: cause}
}

// ExpandPath expands a leading ~/ and cleans the path.
func ExpandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
		return path
	}
	return filepath.Clean(path)
}
