// Package runtime provides the process foundation for arc-skill commands.
// Use the builder pattern to compose capabilities.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gezibash/arc-skill/internal/config"
	"github.com/gezibash/arc-skill/pkg/logging"
)

// Extension is a function that extends the runtime with a capability.
// Extensions are called in order during Build().
type Extension func(*Runtime) error

// Option configures a runtime builder.
type Option func(*Builder) error

// Builder constructs a Runtime with composed capabilities.
type Builder struct {
	name      string
	dataDir   string
	logLevel  string
	logFormat string
	logWriter io.Writer
	logger    *logging.Logger
	signals   bool

	extensions []Extension
}

// New starts building a runtime for the named command.
func New(name string) *Builder {
	return &Builder{
		name:      name,
		logLevel:  "info",
		logFormat: "text",
		signals:   true,
	}
}

// Compose builds a runtime using functional options.
func Compose(name string, opts ...Option) (*Runtime, error) {
	b := New(name)
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) Option {
	return func(b *Builder) error {
		b.dataDir = dir
		return nil
	}
}

// WithLogger sets a preconfigured logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Builder) error {
		b.logger = l
		return nil
	}
}

// WithLogConfig sets the logger level and format.
func WithLogConfig(level, format string) Option {
	return func(b *Builder) error {
		b.Logging(level, format)
		return nil
	}
}

// WithExtension adds a capability extension.
func WithExtension(ext Extension) Option {
	return func(b *Builder) error {
		b.Use(ext)
		return nil
	}
}

// Use adds a capability extension to the runtime.
// Extensions are applied in order during Build().
func (b *Builder) Use(ext Extension) *Builder {
	b.extensions = append(b.extensions, ext)
	return b
}

// DataDir sets the data directory. Defaults to ~/.arc/skill
func (b *Builder) DataDir(dir string) *Builder {
	b.dataDir = dir
	return b
}

// Logging configures log level and format.
// Levels: debug, info, warn, error. Formats: text, json.
func (b *Builder) Logging(level, format string) *Builder {
	if level != "" {
		b.logLevel = level
	}
	if format != "" {
		b.logFormat = format
	}
	return b
}

// LogWriter sets the output destination for logs.
// Defaults to os.Stderr if not set.
func (b *Builder) LogWriter(w io.Writer) *Builder {
	b.logWriter = w
	return b
}

// Signals controls whether SIGINT/SIGTERM cancel the runtime context.
func (b *Builder) Signals(on bool) *Builder {
	b.signals = on
	return b
}

// Build constructs the runtime with all configured capabilities.
func (b *Builder) Build() (*Runtime, error) {
	if b.name == "" {
		return nil, fmt.Errorf("name is required")
	}

	dataDir := b.dataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	log := b.logger
	if log == nil {
		w := b.logWriter
		if w == nil {
			w = os.Stderr
		}
		log = logging.SetupWriter(b.logLevel, b.logFormat, w)
	}

	ctx, cancel := context.WithCancel(context.Background())

	rt := &Runtime{
		name:       b.name,
		log:        log,
		dataDir:    dataDir,
		ctx:        ctx,
		cancel:     cancel,
		components: make(map[string]any),
	}

	if b.signals {
		rt.watchSignals()
	}

	for _, ext := range b.extensions {
		if err := ext(rt); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	return rt, nil
}

// Runtime is the foundation for arc-skill commands.
type Runtime struct {
	name    string
	log     *logging.Logger
	dataDir string
	ctx     context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	components map[string]any
	closers    []func() error
	closed     bool
	stopSig    func()
}

func (r *Runtime) watchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	r.stopSig = func() {
		signal.Stop(sigCh)
		close(done)
	}
	go func() {
		select {
		case <-sigCh:
		case <-done:
			return
		}
		r.log.Info("shutting down...")
		r.cancel()
		select {
		case <-sigCh:
			r.log.Warn("forced shutdown")
			os.Exit(1)
		case <-done:
		}
	}()
}

// Name returns the command name.
func (r *Runtime) Name() string { return r.name }

// Log returns the logger.
func (r *Runtime) Log() *logging.Logger { return r.log }

// DataDir returns the data directory.
func (r *Runtime) DataDir() string { return r.dataDir }

// DataPath joins elem to the data directory.
func (r *Runtime) DataPath(elem ...string) string {
	return filepath.Join(append([]string{r.dataDir}, elem...)...)
}

// Context returns the lifecycle context (cancelled on shutdown).
func (r *Runtime) Context() context.Context { return r.ctx }

// Shutdown triggers graceful shutdown.
func (r *Runtime) Shutdown() { r.cancel() }

// Wait blocks until shutdown.
func (r *Runtime) Wait() { <-r.ctx.Done() }

// Set stores a component for later retrieval by capability accessors.
func (r *Runtime) Set(key string, component any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[key] = component
}

// Get retrieves a component by key.
func (r *Runtime) Get(key string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.components[key]
}

// OnClose registers a cleanup function to be called on Close().
// Cleanups run in reverse registration order.
func (r *Runtime) OnClose(fn func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, fn)
}

// Close cancels the context and runs cleanups. It is safe to call twice.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	closers := r.closers
	r.closers = nil
	stop := r.stopSig
	r.mu.Unlock()

	r.cancel()
	if stop != nil {
		stop()
	}

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
