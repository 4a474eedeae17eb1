package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/pkg/runtime"
)

// CommandConfig configures a CLI command that uses the runtime pattern.
type CommandConfig struct {
	// Name identifies this command (for runtime/logging).
	Name string

	// Viper holds the command's configuration.
	Viper *viper.Viper

	// Timeout for the command operation. Zero means no timeout.
	Timeout time.Duration

	// Extensions are applied to the runtime (e.g., WithAudit).
	Extensions []runtime.Extension

	// Output overrides the renderer built from the "output" key.
	Output *Output

	// Run is the command's business logic.
	Run func(ctx context.Context, rt *runtime.Runtime, out *Output) error
}

// RunCommand builds the runtime, applies the timeout, runs the command and
// closes the runtime.
func RunCommand(cfg CommandConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("command name required")
	}
	if cfg.Viper == nil {
		return fmt.Errorf("viper required")
	}
	if cfg.Run == nil {
		return fmt.Errorf("run function required")
	}

	builder := NewBuilder(cfg.Name, cfg.Viper)
	for _, ext := range cfg.Extensions {
		builder = builder.Use(ext)
	}

	rt, err := builder.Build()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer func() { _ = rt.Close() }()

	ctx := rt.Context()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	out := cfg.Output
	if out == nil {
		out = NewOutputFromViper(cfg.Viper)
	}

	return cfg.Run(ctx, rt, out)
}
