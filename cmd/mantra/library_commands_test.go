package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"mantra/internal/filters"
	"mantra/internal/library"
	"mantra/internal/services"
	"mantra/internal/testsupport"
)

func seedRenders(t *testing.T, env *cliTestEnv) (succeeded, failed library.Render) {
	t.Helper()
	store := testsupport.MustOpenLibrary(t, env.cfg)
	ctx := context.Background()

	var err error
	succeeded, err = store.Begin(ctx, library.Render{
		ID:        "11111111-aaaa-4000-8000-000000000001",
		CreatedAt: time.Now().Add(-time.Hour),
		Source:    "preset:confidence",
		Beat:      "theta",
		Reverb:    filters.DefaultReverb(),
		Volumes:   filters.DefaultVolumes(),
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Complete(ctx, succeeded.ID, "/tmp/out.wav", 95*time.Second); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	failed, err = store.Begin(ctx, library.Render{
		ID:      "22222222-bbbb-4000-8000-000000000002",
		Source:  "file:voice.wav",
		Reverb:  filters.DefaultReverb(),
		Volumes: filters.DefaultVolumes(),
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	cause := &services.EngineLoadError{Op: "probe ffmpeg", Err: errors.New("exit status 1")}
	if err := store.Fail(ctx, failed.ID, cause); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	return succeeded, failed
}

func TestLibraryListShowRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	succeeded, failed := seedRenders(t, env)

	out, _, err := runCLI(t, []string{"library", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("library list: %v", err)
	}
	requireContains(t, out, "11111111")
	requireContains(t, out, "22222222")
	requireContains(t, out, "1:35.0")
	if strings.Index(out, "22222222") > strings.Index(out, "11111111") {
		t.Fatalf("expected newest render first:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"library", "list", "--status", "failed", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("library list --json: %v", err)
	}
	var views []renderView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(views) != 1 || views[0].ID != failed.ID || views[0].ErrorKind != services.KindEngineLoad {
		t.Fatalf("unexpected failed filter result %+v", views)
	}
	if views[0].Beat != "none" {
		t.Fatalf("beat = %q, want none", views[0].Beat)
	}

	out, _, err = runCLI(t, []string{"library", "show", "1111"}, env.configPath)
	if err != nil {
		t.Fatalf("library show: %v", err)
	}
	requireContains(t, out, succeeded.ID)
	requireContains(t, out, "100 ms, decay 0.4, mix 0.25")
	requireContains(t, out, "/tmp/out.wav")

	if _, _, err := runCLI(t, []string{"library", "show", "ffff"}, env.configPath); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	out, _, err = runCLI(t, []string{"library", "remove", "2222"}, env.configPath)
	if err != nil {
		t.Fatalf("library remove: %v", err)
	}
	requireContains(t, out, "Removed render "+failed.ID)

	out, _, err = runCLI(t, []string{"library", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("library list: %v", err)
	}
	if strings.Contains(out, "22222222") {
		t.Fatalf("removed render still listed:\n%s", out)
	}
}

func TestLibraryListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"library", "list", "--status", "queued"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestLibraryListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"library", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("library list: %v", err)
	}
	requireContains(t, out, "No renders recorded")
}
