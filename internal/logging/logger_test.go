package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mantra/internal/config"
	"mantra/internal/logging"
	"mantra/internal/services"
)

func TestNewFromConfigWritesJSONLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("render finished", logging.String(logging.FieldRenderID, "abc"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName(time.Now())))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json log %q: %v", content, err)
	}
	if record["msg"] != "render finished" || record[logging.FieldRenderID] != "abc" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestConsoleHeaderCarriesComponentAndSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithStep(services.WithRenderID(context.Background(), "1f0c2a9e-aaaa-bbbb-cccc-dddddddddddd"), "mix")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "mixdown")).Info("graph finished", logging.Int("inputs", 2))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, fragment := range []string{"INFO", "[mixdown]", "1f0c2a9e/mix", "graph finished", "inputs=2"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in %q", fragment, line)
		}
	}
	if strings.Contains(line, "render_id=") {
		t.Fatalf("render id should be lifted into the header, got %q", line)
	}
}

func TestInvocationIDOnEveryRecord(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "invocation.log")
	base, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger := logging.WithInvocationID(base, "inv-1").With("extra", "value")
	logger.Info("first")
	logger.Info("second")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), content)
	}
	for _, line := range lines {
		if !strings.Contains(line, `"invocation_id":"inv-1"`) || !strings.Contains(line, `"extra":"value"`) {
			t.Fatalf("missing attrs in %s", line)
		}
	}
}

func TestTeeHandlerRespectsPerHandlerLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	info := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(logging.TeeHandler(nil, info, debug))

	logger.Debug("only debug")
	logger.Info("both")

	if strings.Contains(infoBuf.String(), "only debug") {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if !strings.Contains(infoBuf.String(), "both") || !strings.Contains(debugBuf.String(), "both") {
		t.Fatal("expected info record in both handlers")
	}
	if !strings.Contains(debugBuf.String(), "only debug") {
		t.Fatal("expected debug record in debug handler")
	}
	if _, ok := logging.TeeHandler(nil, nil).(logging.NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerShape(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "json message" || record["k"] != "v" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, err := time.Parse(time.RFC3339, record["ts"].(string)); err != nil {
		t.Fatalf("ts not RFC3339: %v", record["ts"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

type captureHandler struct {
	attrs   []slog.Attr
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{attrs: append(append([]slog.Attr{}, h.attrs...), attrs...), records: h.records}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRenderID(ctx, "r-123")
	ctx = services.WithStep(ctx, "mix")
	ctx = services.WithRequestID(ctx, "req-xyz")

	base := &captureHandler{}
	logger := logging.WithContext(ctx, slog.New(base))
	handler, ok := logger.Handler().(*captureHandler)
	if !ok {
		t.Fatalf("unexpected handler type %T", logger.Handler())
	}

	got := map[string]string{}
	for _, attr := range handler.attrs {
		got[attr.Key] = attr.Value.String()
	}
	want := map[string]string{
		logging.FieldRenderID:      "r-123",
		logging.FieldStep:          "mix",
		logging.FieldCorrelationID: "req-xyz",
	}
	for key, value := range want {
		if got[key] != value {
			t.Fatalf("field %s = %q, want %q", key, got[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "unstage failed", "unstage_failed", logging.String(logging.FieldImpact, "file left in staging"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, fragment := range []string{"WARN", "event_type=unstage_failed", "error_hint=", `impact="file left in staging"`} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in %q", fragment, text)
		}
	}
}
