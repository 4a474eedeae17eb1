package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/auditlog"
	_ "github.com/gezibash/arc-skill/internal/auditlog/memory"
	"github.com/gezibash/arc-skill/internal/config"
	"github.com/gezibash/arc-skill/pkg/runtime"
)

func testViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.Set("data_dir", t.TempDir())
	return v
}

func TestRunCommandValidation(t *testing.T) {
	run := func(context.Context, *runtime.Runtime, *Output) error { return nil }
	tests := []struct {
		name string
		cfg  CommandConfig
	}{
		{"no name", CommandConfig{Viper: viper.New(), Run: run}},
		{"no viper", CommandConfig{Name: "x", Run: run}},
		{"no run", CommandConfig{Name: "x", Viper: viper.New()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := RunCommand(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunCommand(t *testing.T) {
	v := testViper(t)
	var buf bytes.Buffer
	var called bool
	err := RunCommand(CommandConfig{
		Name:   "test-cmd",
		Viper:  v,
		Output: NewOutput(FormatText, &buf),
		Run: func(ctx context.Context, rt *runtime.Runtime, out *Output) error {
			called = true
			if rt.Name() != "test-cmd" {
				return fmt.Errorf("name = %q", rt.Name())
			}
			if rt.DataDir() != v.GetString("data_dir") {
				return fmt.Errorf("data dir = %q", rt.DataDir())
			}
			return out.Result("ok", "done").Render()
		},
	})
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if !called {
		t.Fatal("run not called")
	}
	if buf.String() != "done\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunCommandTimeout(t *testing.T) {
	err := RunCommand(CommandConfig{
		Name:    "timeout",
		Viper:   testViper(t),
		Timeout: 5 * time.Second,
		Run: func(ctx context.Context, _ *runtime.Runtime, _ *Output) error {
			deadline, ok := ctx.Deadline()
			if !ok {
				return fmt.Errorf("no deadline")
			}
			if time.Until(deadline) > 6*time.Second {
				return fmt.Errorf("deadline too far: %v", time.Until(deadline))
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
}

func TestRunCommandPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := RunCommand(CommandConfig{
		Name:  "fail",
		Viper: testViper(t),
		Run:   func(context.Context, *runtime.Runtime, *Output) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestRunCommandExtensionError(t *testing.T) {
	err := RunCommand(CommandConfig{
		Name:       "ext",
		Viper:      testViper(t),
		Extensions: []runtime.Extension{func(*runtime.Runtime) error { return errors.New("nope") }},
		Run: func(context.Context, *runtime.Runtime, *Output) error {
			t.Fatal("run should not be called")
			return nil
		},
	})
	if err == nil {
		t.Fatal("expected init error")
	}
}

func TestNewBuilderLogsToDataDir(t *testing.T) {
	v := testViper(t)
	v.Set("observability.log_level", "debug")
	v.Set("observability.log_format", "json")

	rt, err := NewBuilder("log-test", v).Signals(false).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rt.Log().Debug("written to file")
	_ = rt.Close()

	data, err := os.ReadFile(filepath.Join(v.GetString("data_dir"), "log", "cli.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(data, []byte(`"msg":"written to file"`)) {
		t.Errorf("log file = %s", data)
	}
}

func TestWithAudit(t *testing.T) {
	v := testViper(t)
	var got auditlog.Backend
	err := RunCommand(CommandConfig{
		Name:       "audit",
		Viper:      v,
		Extensions: []runtime.Extension{WithAudit(config.BackendConfig{Backend: "memory"}, nil)},
		Run: func(ctx context.Context, rt *runtime.Runtime, _ *Output) error {
			got = Audit(rt)
			if got == nil {
				return fmt.Errorf("no audit backend installed")
			}
			return got.Put(ctx, &auditlog.Record{ID: "1", RequestType: "LaunchRequest", Outcome: "handled", Timestamp: time.Now()})
		},
	})
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if _, err := got.Count(context.Background()); !errors.Is(err, auditlog.ErrClosed) {
		t.Errorf("backend not closed with runtime: %v", err)
	}
}

func TestWithAuditDisabled(t *testing.T) {
	err := RunCommand(CommandConfig{
		Name:       "audit",
		Viper:      testViper(t),
		Extensions: []runtime.Extension{WithAudit(config.BackendConfig{Backend: auditlog.Disabled}, nil)},
		Run: func(_ context.Context, rt *runtime.Runtime, _ *Output) error {
			if Audit(rt) != nil {
				return fmt.Errorf("expected no backend")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
}

func TestWithAuditUnknownBackend(t *testing.T) {
	err := RunCommand(CommandConfig{
		Name:       "audit",
		Viper:      testViper(t),
		Extensions: []runtime.Extension{WithAudit(config.BackendConfig{Backend: "nope"}, nil)},
		Run:        func(context.Context, *runtime.Runtime, *Output) error { return nil },
	})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestWithDataDir(t *testing.T) {
	rt, err := runtime.New("t").Signals(false).DataDir("/data").LogWriter(&bytes.Buffer{}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	got := withDataDir(config.BackendConfig{Config: map[string]string{"path": "a.db"}}, rt)
	if got["data_dir"] != filepath.Join("/data", "audit") || got["path"] != "a.db" {
		t.Errorf("got %v", got)
	}
	got = withDataDir(config.BackendConfig{Config: map[string]string{"data_dir": "/elsewhere"}}, rt)
	if got["data_dir"] != "/elsewhere" {
		t.Errorf("explicit data_dir overridden: %v", got)
	}
}
