package preflight

import (
	"context"
	"strings"

	"mantra/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// The speech synthesis check only runs when an API key is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}

	if strings.TrimSpace(cfg.TTS.APIKey) != "" {
		results = append(results, CheckTTS(ctx, cfg.TTS.BaseURL, cfg.TTS.APIKey))
	}

	return results
}
