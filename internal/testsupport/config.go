package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mantra/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose paths all live under a per-test temp
// directory. The TTS key is cleared so nothing reaches the network.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.OutputDir = filepath.Join(base, "renders")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LibraryDB = filepath.Join(base, "library.db")
	cfgVal.TTS.APIKey = ""

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTTS points the TTS section at baseURL with the given key.
func WithTTS(baseURL, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TTS.BaseURL = baseURL
		b.cfg.TTS.APIKey = apiKey
	}
}

// WithStubFFmpeg writes an executable shell script standing in for ffmpeg and
// points engine.ffmpeg_binary at it. An empty script exits 0.
func WithStubFFmpeg(script string) ConfigOption {
	return func(b *configBuilder) {
		if script == "" {
			script = "#!/bin/sh\nexit 0\n"
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write ffmpeg stub: %v", err)
		}
		b.cfg.Engine.FFmpegBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
