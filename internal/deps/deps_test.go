package deps

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResolveFFmpegPathPrecedence(t *testing.T) {
	t.Setenv("MANTRA_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	if got := ResolveFFmpegPath(" /usr/local/bin/ffmpeg "); got != "/usr/local/bin/ffmpeg" {
		t.Fatalf("configured path should win, got %q", got)
	}
	if got := ResolveFFmpegPath(""); got != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("env path should be used, got %q", got)
	}
	t.Setenv("MANTRA_FFMPEG", "")
	if got := ResolveFFmpegPath(""); got != "ffmpeg" {
		t.Fatalf("expected default, got %q", got)
	}
}

func TestLookupFFmpeg(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	binDir := t.TempDir()
	stub := filepath.Join(binDir, "ffmpeg")
	script := []byte("#!/bin/sh\necho 'ffmpeg version 7.1 Copyright (c) the FFmpeg developers'\necho 'built with gcc'\n")
	if err := os.WriteFile(stub, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("MANTRA_FFMPEG", "")
	t.Setenv("PATH", binDir)

	status := LookupFFmpeg("")
	if !status.Available {
		t.Fatalf("expected ffmpeg to resolve, got %q", status.Detail)
	}
	if status.Command != stub {
		t.Fatalf("expected %q, got %q", stub, status.Command)
	}

	version, err := FFmpegVersion(context.Background(), status.Command)
	if err != nil {
		t.Fatalf("FFmpegVersion: %v", err)
	}
	if version != "ffmpeg version 7.1" {
		t.Fatalf("unexpected version line %q", version)
	}
}

func TestLookupFFmpegNotFound(t *testing.T) {
	t.Setenv("MANTRA_FFMPEG", "")
	t.Setenv("PATH", "")
	status := LookupFFmpeg("")
	if status.Available {
		t.Fatal("expected ffmpeg resolution to fail")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message when ffmpeg is unavailable")
	}
}

func TestFFmpegVersionRejectsForeignBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	stub := filepath.Join(t.TempDir(), "fake")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho hello\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := FFmpegVersion(context.Background(), stub); err == nil {
		t.Fatal("expected error for non-ffmpeg output")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{name: "release", output: "ffmpeg version 7.1 Copyright (c) 2000-2024 the FFmpeg developers\nbuilt with gcc\n", want: "ffmpeg version 7.1"},
		{name: "git build", output: "ffmpeg version n7.0-12-gabc\n", want: "ffmpeg version n7.0-12-gabc"},
		{name: "leading blank line", output: "\nffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023\n", want: "ffmpeg version 6.1.1-3ubuntu5"},
		{name: "foreign binary", output: "hello\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion([]byte(tt.output))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVersion: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
