// Package cli provides helpers for building arc-skill commands: runtime
// setup from viper and multi-format output.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/config"
	"github.com/gezibash/arc-skill/internal/observability"
	"github.com/gezibash/arc-skill/internal/storage"
	"github.com/gezibash/arc-skill/pkg/runtime"
)

const auditKey = "auditlog"

// NewBuilder creates a runtime builder configured from viper settings:
//   - data_dir: data directory path
//   - observability.log_level: debug, info, warn, error
//   - observability.log_format: text, json
//
// Client-side logs are written to {data_dir}/log/cli.log so they never mix
// with command output.
func NewBuilder(name string, v *viper.Viper) *runtime.Builder {
	builder := runtime.New(name)

	dataDir := v.GetString("data_dir")
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	builder = builder.DataDir(dataDir)

	logDir := filepath.Join(dataDir, "log")
	if err := os.MkdirAll(logDir, 0o700); err == nil {
		f, err := os.OpenFile(filepath.Join(logDir, "cli.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path is built from the data dir
		if err == nil {
			builder = builder.LogWriter(f)
		}
	}

	return builder.Logging(v.GetString("observability.log_level"), v.GetString("observability.log_format"))
}

// WithAudit opens the configured audit backend and closes it with the
// runtime. The "none" backend installs nothing.
func WithAudit(cfg config.BackendConfig, metrics *observability.Metrics) runtime.Extension {
	return func(rt *runtime.Runtime) error {
		be, err := auditlog.New(rt.Context(), cfg.Backend, withDataDir(cfg, rt), metrics)
		if err != nil {
			return fmt.Errorf("open audit backend: %w", err)
		}
		if be == nil {
			return nil
		}
		rt.Set(auditKey, be)
		rt.OnClose(be.Close)
		return nil
	}
}

// Audit returns the audit backend installed by WithAudit, or nil.
func Audit(rt *runtime.Runtime) auditlog.Backend {
	be, _ := rt.Get(auditKey).(auditlog.Backend)
	return be
}

// withDataDir resolves relative backend paths under {data_dir}/audit.
func withDataDir(cfg config.BackendConfig, rt *runtime.Runtime) map[string]string {
	out := make(map[string]string, len(cfg.Config)+1)
	for k, v := range cfg.Config {
		out[k] = v
	}
	if _, ok := out[storage.KeyDataDir]; !ok {
		out[storage.KeyDataDir] = rt.DataPath("audit")
	}
	return out
}
