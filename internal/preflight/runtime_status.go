package preflight

import (
	"context"
	"time"

	"mantra/internal/config"
	"mantra/internal/deps"
)

// CheckFFmpegFromConfig resolves the configured ffmpeg binary and reports its
// version line.
func CheckFFmpegFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "FFmpeg"

	configured := ""
	if cfg != nil {
		configured = cfg.Engine.FFmpegBinary
	}
	status := deps.LookupFFmpeg(configured)
	if !status.Available {
		return Result{Name: name, Detail: status.Detail}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	version, err := deps.FFmpegVersion(probeCtx, status.Command)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: version}
}

// CheckTTSFromConfig evaluates speech synthesis status from config and connectivity.
func CheckTTSFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Speech synthesis"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if cfg.TTS.APIKey == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return CheckTTS(ctx, cfg.TTS.BaseURL, cfg.TTS.APIKey)
}
