package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mantra/internal/deps"
	"mantra/internal/logging"
	"mantra/internal/preflight"
	"mantra/internal/services"
)

var commandContext = exec.CommandContext

// DirPrefix prefixes every private staging directory an engine creates.
const DirPrefix = "engine-"

// LockFileName is the lock file held inside a live engine's staging directory.
const LockFileName = ".engine.lock"

// ErrNotReady is returned by staging and run operations before EnsureReady
// has succeeded or after Terminate.
var ErrNotReady = errors.New("engine not ready")

// State is the engine's load state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithBinary overrides the ffmpeg command. Empty keeps the default resolution.
func WithBinary(binary string) Option {
	return func(e *Engine) {
		e.binary = binary
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type loadAttempt struct {
	done chan struct{}
	err  error
}

// Engine is a lazily loaded ffmpeg runner with a private staging directory.
type Engine struct {
	root   string
	binary string
	logger *slog.Logger

	runMu sync.Mutex

	mu       sync.Mutex
	state    State
	attempt  *loadAttempt
	attempts int
	command  string
	version  string
	dir      string
	lock     *flock.Flock
}

// New constructs an Uninitialized engine that will stage under root.
func New(root string, opts ...Option) *Engine {
	e := &Engine{root: root, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "engine")
	return e
}

// State reports the current load state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Dir returns the private staging directory, or "" when not ready.
func (e *Engine) Dir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir
}

// Version returns the probed ffmpeg version line, or "" when not ready.
func (e *Engine) Version() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// LoadAttempts counts load attempts started over the engine's lifetime.
func (e *Engine) LoadAttempts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts
}

// EnsureReady loads the engine if needed. Concurrent callers wait on the same
// attempt and observe its outcome. A caller whose ctx ends while waiting gets
// ctx.Err(); the load itself keeps running.
func (e *Engine) EnsureReady(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateReady:
		e.mu.Unlock()
		return nil
	case StateUninitialized, StateFailed:
		e.attempt = &loadAttempt{done: make(chan struct{})}
		e.attempts++
		e.state = StateLoading
		go e.runLoad(context.WithoutCancel(ctx), e.attempt)
	}
	attempt := e.attempt
	e.mu.Unlock()

	select {
	case <-attempt.done:
		return attempt.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) runLoad(ctx context.Context, attempt *loadAttempt) {
	res, err := e.load(ctx)

	e.mu.Lock()
	if err != nil {
		e.state = StateFailed
		attempt.err = err
		logging.WarnWithContext(e.logger, "engine load failed", "engine_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ffmpeg installation and staging_dir permissions"),
			logging.String(logging.FieldImpact, "mixdowns fail until the engine loads"),
		)
	} else {
		e.state = StateReady
		e.command = res.command
		e.version = res.version
		e.dir = res.dir
		e.lock = res.lock
		e.logger.Info("engine ready",
			logging.String("dir", res.dir),
			logging.String("ffmpeg", res.command),
			logging.String("version", res.version),
		)
	}
	e.mu.Unlock()
	close(attempt.done)
}

type loaded struct {
	command string
	version string
	dir     string
	lock    *flock.Flock
}

func (e *Engine) load(ctx context.Context) (loaded, error) {
	status := deps.LookupFFmpeg(e.binary)
	if !status.Available {
		return loaded{}, &services.EngineLoadError{Op: "resolve ffmpeg", Err: errors.New(status.Detail)}
	}

	out, err := commandContext(ctx, status.Command, "-hide_banner", "-version").Output()
	if err != nil {
		return loaded{}, &services.EngineLoadError{Op: "probe ffmpeg", Err: err}
	}
	version, err := deps.ParseVersion(out)
	if err != nil {
		return loaded{}, &services.EngineLoadError{Op: "probe ffmpeg", Err: err}
	}

	if err := os.MkdirAll(e.root, 0o755); err != nil {
		return loaded{}, &services.EngineLoadError{Op: "create staging root", Err: err}
	}
	if check := preflight.CheckDirectoryAccess("staging root", e.root); !check.Passed {
		return loaded{}, &services.EngineLoadError{Op: "check staging root", Err: errors.New(check.Detail)}
	}

	dir := filepath.Join(e.root, DirPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return loaded{}, &services.EngineLoadError{Op: "create staging dir", Err: err}
	}
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil || !ok {
		_ = os.RemoveAll(dir)
		if err == nil {
			err = errors.New("lock held by another process")
		}
		return loaded{}, &services.EngineLoadError{Op: "lock staging dir", Err: err}
	}

	return loaded{command: status.Command, version: version, dir: dir, lock: lock}, nil
}

// Terminate releases the staging lock, removes the staging directory, and
// returns the engine to Uninitialized. It waits for an in-flight load or run
// to finish and is safe to call any number of times.
func (e *Engine) Terminate() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.mu.Lock()
	for e.state == StateLoading {
		attempt := e.attempt
		e.mu.Unlock()
		<-attempt.done
		e.mu.Lock()
	}
	defer e.mu.Unlock()

	dir, lock := e.dir, e.lock
	e.state = StateUninitialized
	e.attempt = nil
	e.command = ""
	e.version = ""
	e.dir = ""
	e.lock = nil

	if dir == "" {
		return nil
	}

	var errs []error
	if lock != nil {
		if err := lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release staging lock: %w", err))
		}
	}
	if err := os.RemoveAll(dir); err != nil {
		errs = append(errs, fmt.Errorf("remove staging dir: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	e.logger.Info("engine terminated", logging.String("dir", dir))
	return nil
}

// ready returns the command and staging directory of a Ready engine.
func (e *Engine) ready() (string, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return "", "", ErrNotReady
	}
	return e.command, e.dir, nil
}
