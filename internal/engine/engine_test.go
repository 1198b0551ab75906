package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mantra/internal/filters"
	"mantra/internal/services"
)

type fakeFFmpeg struct {
	mu       sync.Mutex
	mode     string
	delay    time.Duration
	versions atomic.Int32
	runs     atomic.Int32
}

func (f *fakeFFmpeg) setMode(mode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = mode
}

// installFakeFFmpeg routes every engine subprocess to TestHelperProcess.
func installFakeFFmpeg(t *testing.T, mode string, delay time.Duration) *fakeFFmpeg {
	t.Helper()
	fake := &fakeFFmpeg{mode: mode, delay: delay}
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		isVersion := len(args) > 0 && args[len(args)-1] == "-version"
		if isVersion {
			fake.versions.Add(1)
		} else {
			fake.runs.Add(1)
		}
		fake.mu.Lock()
		mode := fake.mode
		fake.mu.Unlock()
		cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"ENGINE_HELPER_MODE="+mode,
			fmt.Sprintf("ENGINE_HELPER_DELAY_MS=%d", fake.delay.Milliseconds()),
		)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return fake
}

// stubBinary writes an executable so binary resolution succeeds.
func stubBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "staging")
	e := New(root, WithBinary(stubBinary(t)))
	t.Cleanup(func() { _ = e.Terminate() })
	return e, root
}

func TestEnsureReadySingleFlight(t *testing.T) {
	fake := installFakeFFmpeg(t, "ok", 150*time.Millisecond)
	e, root := newTestEngine(t)

	if e.State() != StateUninitialized {
		t.Fatalf("expected uninitialized, got %s", e.State())
	}

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.EnsureReady(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := fake.versions.Load(); got != 1 {
		t.Fatalf("expected exactly one probe, got %d", got)
	}
	if e.LoadAttempts() != 1 {
		t.Fatalf("expected one load attempt, got %d", e.LoadAttempts())
	}
	if e.State() != StateReady {
		t.Fatalf("expected ready, got %s", e.State())
	}
	dir := e.Dir()
	if filepath.Dir(dir) != root || !strings.HasPrefix(filepath.Base(dir), DirPrefix) {
		t.Fatalf("unexpected staging dir %q", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Fatalf("expected lock file: %v", err)
	}
	if e.Version() != "ffmpeg version 7.1-test" {
		t.Fatalf("unexpected version %q", e.Version())
	}

	if err := e.EnsureReady(context.Background()); err != nil {
		t.Fatalf("ready engine: %v", err)
	}
	if fake.versions.Load() != 1 {
		t.Fatal("ready engine must not reload")
	}
}

func TestEnsureReadyFailureThenRetry(t *testing.T) {
	fake := installFakeFFmpeg(t, "bad_version", 0)
	e, _ := newTestEngine(t)

	err := e.EnsureReady(context.Background())
	if !errors.Is(err, services.ErrEngineLoad) {
		t.Fatalf("expected engine load error, got %v", err)
	}
	var loadErr *services.EngineLoadError
	if !errors.As(err, &loadErr) || loadErr.Op != "probe ffmpeg" {
		t.Fatalf("unexpected error %#v", err)
	}
	if e.State() != StateFailed {
		t.Fatalf("expected failed, got %s", e.State())
	}
	if e.Dir() != "" {
		t.Fatal("failed engine must not expose a staging dir")
	}

	fake.setMode("ok")
	if err := e.EnsureReady(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if e.LoadAttempts() != 2 {
		t.Fatalf("expected two attempts, got %d", e.LoadAttempts())
	}
	if e.State() != StateReady {
		t.Fatalf("expected ready after retry, got %s", e.State())
	}
}

func TestEnsureReadyMissingBinary(t *testing.T) {
	installFakeFFmpeg(t, "ok", 0)
	e := New(t.TempDir(), WithBinary(filepath.Join(t.TempDir(), "no-ffmpeg")))

	err := e.EnsureReady(context.Background())
	if !errors.Is(err, services.ErrEngineLoad) {
		t.Fatalf("expected engine load error, got %v", err)
	}
	if services.Classify(err) != services.KindEngineLoad {
		t.Fatalf("unexpected classification %q", services.Classify(err))
	}
}

func TestEnsureReadyStagingRootUnusable(t *testing.T) {
	installFakeFFmpeg(t, "ok", 0)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := New(file, WithBinary(stubBinary(t)))
	if err := e.EnsureReady(context.Background()); !errors.Is(err, services.ErrEngineLoad) {
		t.Fatalf("expected engine load error, got %v", err)
	}
}

func TestEnsureReadyWaiterCancellationDoesNotAbortLoad(t *testing.T) {
	installFakeFFmpeg(t, "ok", 300*time.Millisecond)
	e, _ := newTestEngine(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.EnsureReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if e.State() != StateLoading {
		t.Fatalf("expected load to continue, got %s", e.State())
	}

	if err := e.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	if e.LoadAttempts() != 1 {
		t.Fatalf("expected the original attempt to complete, got %d attempts", e.LoadAttempts())
	}
}

func TestTerminate(t *testing.T) {
	installFakeFFmpeg(t, "ok", 0)
	e, _ := newTestEngine(t)

	if err := e.Terminate(); err != nil {
		t.Fatalf("terminate before load: %v", err)
	}
	if err := e.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	dir := e.Dir()
	if err := e.Stage("x-input.wav", []byte("data")); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	if err := e.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected staging dir removed, stat err=%v", err)
	}
	if e.State() != StateUninitialized || e.Dir() != "" {
		t.Fatalf("unexpected state after terminate: %s %q", e.State(), e.Dir())
	}
	if err := e.Terminate(); err != nil {
		t.Fatalf("second terminate: %v", err)
	}
	if err := e.Stage("x-input.wav", nil); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected not ready after terminate, got %v", err)
	}

	if err := e.EnsureReady(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if e.Dir() == dir {
		t.Fatal("expected a fresh staging dir after reload")
	}
}

func TestTerminateWaitsForLoad(t *testing.T) {
	installFakeFFmpeg(t, "ok", 150*time.Millisecond)
	e, root := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = e.EnsureReady(ctx)

	if err := e.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if e.State() != StateUninitialized {
		t.Fatalf("expected uninitialized, got %s", e.State())
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover staging dirs, found %d", len(entries))
	}
}

func TestStageUnstageRoundTrip(t *testing.T) {
	installFakeFFmpeg(t, "ok", 0)
	e, _ := newTestEngine(t)

	if err := e.Stage("r1-input.wav", []byte("early")); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if err := e.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}

	name := StagedName("r1", "input.wav")
	if name != "r1-input.wav" {
		t.Fatalf("unexpected staged name %q", name)
	}
	if err := e.Stage(name, []byte("first")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := e.Stage(name, []byte("second")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := e.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("unexpected contents %q", got)
	}

	e.Unstage(context.Background(), name)
	if e.Exists(name) {
		t.Fatal("expected name to be gone")
	}
	if _, err := e.ReadFile(name); err == nil {
		t.Fatal("expected read of unstaged name to fail")
	}
	e.Unstage(context.Background(), name)
	e.Unstage(context.Background(), "never-staged.wav")
}

func TestValidateName(t *testing.T) {
	for _, name := range []string{"", " ", ".", "..", "../escape", `dir\file`, "a/b", LockFileName} {
		if err := ValidateName(name); !errors.Is(err, services.ErrInvalidInput) {
			t.Fatalf("ValidateName(%q) = %v, want invalid input", name, err)
		}
	}
	if err := ValidateName("0b7e-output.wav"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func readyEngine(t *testing.T, mode string) (*Engine, *fakeFFmpeg) {
	t.Helper()
	fake := installFakeFFmpeg(t, "ok", 0)
	e, _ := newTestEngine(t)
	if err := e.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady: %v", err)
	}
	fake.setMode(mode)
	return e, fake
}

func mixGraph(prefix string) filters.Graph {
	chain := filters.BuildVoiceChain(filters.DefaultReverb(), 1)
	return filters.MixGraph(prefix+"-input.wav", "", chain, 0, prefix+"-output.wav")
}

func TestRunWritesOutput(t *testing.T) {
	e, fake := readyEngine(t, "run_ok")
	if err := e.Stage("a-input.wav", []byte("pcm")); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	if err := e.Run(context.Background(), mixGraph("a")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fake.runs.Load() != 1 {
		t.Fatalf("expected one run, got %d", fake.runs.Load())
	}
	out, err := e.ReadFile("a-output.wav")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(out), "-filter_complex") {
		t.Fatalf("helper output should echo args, got %q", out)
	}
}

func TestRunMissingInputDoesNotSpawn(t *testing.T) {
	e, fake := readyEngine(t, "run_ok")

	err := e.Run(context.Background(), mixGraph("b"))
	var execErr *services.EngineExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected execution error, got %v", err)
	}
	if !strings.Contains(execErr.Diagnostics, "b-input.wav") {
		t.Fatalf("diagnostics should name the input: %q", execErr.Diagnostics)
	}
	if fake.runs.Load() != 0 {
		t.Fatal("ffmpeg must not be spawned for a missing input")
	}
}

func TestRunFailureCarriesDiagnostics(t *testing.T) {
	e, _ := readyEngine(t, "run_fail")
	if err := e.Stage("c-input.wav", []byte("pcm")); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	err := e.Run(context.Background(), mixGraph("c"))
	if !errors.Is(err, services.ErrEngineExecution) {
		t.Fatalf("expected execution error, got %v", err)
	}
	var execErr *services.EngineExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected typed error, got %T", err)
	}
	if execErr.Diagnostics != "Error initializing complex filters: Invalid argument" {
		t.Fatalf("unexpected diagnostics %q", execErr.Diagnostics)
	}
	if execErr.Op != "mix" {
		t.Fatalf("unexpected op %q", execErr.Op)
	}
}

func TestRunCanceledContext(t *testing.T) {
	e, fake := readyEngine(t, "run_ok")
	if err := e.Stage("d-input.wav", []byte("pcm")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx, mixGraph("d"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if fake.runs.Load() != 0 {
		t.Fatal("canceled run must not spawn ffmpeg")
	}
}

func TestRunDeadlineStopsFFmpeg(t *testing.T) {
	e, fake := readyEngine(t, "run_ok")
	fake.delay = 5 * time.Second
	if err := e.Stage("t-input.wav", []byte("pcm")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := e.Run(ctx, mixGraph("t"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	var execErr *services.EngineExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected EngineExecutionError, got %T", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("run outlived its deadline by %s", elapsed)
	}
}

func TestRunsAreSerialized(t *testing.T) {
	e, fake := readyEngine(t, "run_ok")
	fake.delay = 40 * time.Millisecond

	const runs = 4
	for i := range runs {
		if err := e.Stage(fmt.Sprintf("s%d-input.wav", i), []byte("pcm")); err != nil {
			t.Fatalf("Stage: %v", err)
		}
	}
	var wg sync.WaitGroup
	errs := make([]error, runs)
	for i := range runs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = e.Run(context.Background(), mixGraph(fmt.Sprintf("s%d", i)))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestRunBeforeReady(t *testing.T) {
	installFakeFFmpeg(t, "ok", 0)
	e, _ := newTestEngine(t)
	if err := e.Run(context.Background(), mixGraph("e")); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	var delay time.Duration
	if ms, err := time.ParseDuration(os.Getenv("ENGINE_HELPER_DELAY_MS") + "ms"); err == nil {
		delay = ms
	}

	if len(args) > 0 && args[len(args)-1] == "-version" {
		time.Sleep(delay)
		if os.Getenv("ENGINE_HELPER_MODE") == "bad_version" {
			fmt.Println("not an encoder")
			os.Exit(0)
		}
		fmt.Println("ffmpeg version 7.1-test Copyright (c) 2000-2024 the FFmpeg developers")
		fmt.Println("configuration: --enable-lavfi")
		os.Exit(0)
	}

	switch os.Getenv("ENGINE_HELPER_MODE") {
	case "run_ok":
		marker, err := os.OpenFile("helper.running", os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintln(os.Stderr, "overlapping run detected")
			os.Exit(3)
		}
		time.Sleep(delay)
		_ = marker.Close()
		_ = os.Remove("helper.running")
		output := args[len(args)-1]
		if err := os.WriteFile(output, []byte(strings.Join(args, " ")), 0o600); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	case "run_fail":
		fmt.Fprintln(os.Stderr, "Error initializing complex filters: Invalid argument")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}
