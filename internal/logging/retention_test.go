package logging_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mantra/internal/logging"
)

func TestLogFileName(t *testing.T) {
	day := time.Date(2026, 3, 9, 23, 59, 0, 0, time.Local)
	if got := logging.LogFileName(day); got != "mantra-20260309.log" {
		t.Fatalf("LogFileName = %q", got)
	}
}

func TestPruneLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.Local)
	old := filepath.Join(dir, logging.LogFileName(now.AddDate(0, 0, -10)))
	recent := filepath.Join(dir, logging.LogFileName(now.AddDate(0, 0, -2)))
	today := filepath.Join(dir, logging.LogFileName(now))
	other := filepath.Join(dir, "notes.txt")
	malformed := filepath.Join(dir, "mantra-latest.log")
	for _, path := range []string{old, recent, today, other, malformed} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	removed, err := logging.PruneLogs(logging.NewNop(), dir, 7, now)
	if err != nil {
		t.Fatalf("PruneLogs: %v", err)
	}
	if len(removed) != 1 || removed[0] != old {
		t.Fatalf("removed = %v, want [%s]", removed, old)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err=%v", err)
	}
	for _, path := range []string{recent, today, other, malformed} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}

func TestPruneLogsDisabled(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	path := filepath.Join(dir, logging.LogFileName(now.AddDate(0, 0, -100)))
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err := logging.PruneLogs(nil, dir, 0, now)
	if err != nil || len(removed) != 0 {
		t.Fatalf("retention 0 must not prune: removed=%v err=%v", removed, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should remain: %v", err)
	}
}

func TestPruneLogsMissingDir(t *testing.T) {
	removed, err := logging.PruneLogs(nil, filepath.Join(t.TempDir(), "absent"), 7, time.Now())
	if err != nil || removed != nil {
		t.Fatalf("missing dir: removed=%v err=%v", removed, err)
	}
}
