package runtime

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildRequiresName(t *testing.T) {
	if _, err := New("").Build(); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestBuildDefaults(t *testing.T) {
	var buf bytes.Buffer
	rt, err := New("test").Signals(false).LogWriter(&buf).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if rt.Name() != "test" {
		t.Errorf("Name = %q", rt.Name())
	}
	if rt.DataDir() == "" {
		t.Error("DataDir is empty")
	}
	rt.Log().Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestCompose(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	rt, err := Compose("test",
		WithDataDir(dir),
		WithLogConfig("debug", "json"),
		func(b *Builder) error { b.LogWriter(&buf).Signals(false); return nil },
	)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	defer rt.Close()

	if got, want := rt.DataPath("audit", "db"), filepath.Join(dir, "audit", "db"); got != want {
		t.Errorf("DataPath = %q, want %q", got, want)
	}
	rt.Log().Debug("dbg")
	if !strings.Contains(buf.String(), `"msg":"dbg"`) {
		t.Errorf("expected json debug line, got %q", buf.String())
	}
}

func TestExtensions(t *testing.T) {
	var order []string
	rt, err := Compose("test",
		WithDataDir(t.TempDir()),
		func(b *Builder) error { b.Signals(false).LogWriter(&bytes.Buffer{}); return nil },
		WithExtension(func(r *Runtime) error {
			r.Set("a", 1)
			r.OnClose(func() error { order = append(order, "a"); return nil })
			return nil
		}),
		WithExtension(func(r *Runtime) error {
			r.OnClose(func() error { order = append(order, "b"); return nil })
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got := rt.Get("a"); got != 1 {
		t.Errorf("Get(a) = %v", got)
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if strings.Join(order, ",") != "b,a" {
		t.Errorf("close order = %v, want b,a", order)
	}
	if rt.Context().Err() == nil {
		t.Error("context not cancelled after Close")
	}
	if err := rt.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("closers ran again: %v", order)
	}
}

func TestExtensionFailureClosesRuntime(t *testing.T) {
	closed := false
	boom := errors.New("boom")
	_, err := Compose("test",
		WithDataDir(t.TempDir()),
		func(b *Builder) error { b.Signals(false).LogWriter(&bytes.Buffer{}); return nil },
		WithExtension(func(r *Runtime) error {
			r.OnClose(func() error { closed = true; return nil })
			return nil
		}),
		WithExtension(func(*Runtime) error { return boom }),
	)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if !closed {
		t.Error("earlier closer did not run")
	}
}

func TestCloseJoinsErrors(t *testing.T) {
	rt, err := New("test").Signals(false).LogWriter(&bytes.Buffer{}).DataDir(t.TempDir()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	e1, e2 := errors.New("one"), errors.New("two")
	rt.OnClose(func() error { return e1 })
	rt.OnClose(func() error { return e2 })
	err = rt.Close()
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("Close = %v, want both errors", err)
	}
}

func TestShutdownCancelsContext(t *testing.T) {
	rt, err := New("test").LogWriter(&bytes.Buffer{}).DataDir(t.TempDir()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()
	rt.Shutdown()
	rt.Wait()
}
