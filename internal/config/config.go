package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"mantra/internal/beats"
	"mantra/internal/filters"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database locations.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	LibraryDB  string `toml:"library_db"`
}

// Engine contains configuration for the ffmpeg-backed transcode engine.
type Engine struct {
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	StaleStagingHours int    `toml:"stale_staging_hours"`
}

// Mixdown contains the default render settings applied when the CLI flags
// leave a value unset.
type Mixdown struct {
	DelayMS  int     `toml:"delay_ms"`
	Decay    float64 `toml:"decay"`
	Mix      float64 `toml:"mix"`
	Voice    float64 `toml:"voice_volume"`
	Binaural float64 `toml:"binaural_volume"`
	Beat     string  `toml:"beat"`
}

// Preview contains configuration for the live oscillator.
type Preview struct {
	Volume     float64 `toml:"volume"`
	SampleRate int     `toml:"sample_rate"`
	BufferMS   int     `toml:"buffer_ms"`
}

// TTS contains configuration for the speech synthesis vendor.
type TTS struct {
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	ModelID         string  `toml:"model_id"`
	VoiceID         string  `toml:"voice_id"`
	Stability       float64 `toml:"stability"`
	SimilarityBoost float64 `toml:"similarity_boost"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for mantra.
//
// Configuration sections by subsystem:
//   - Paths: staging, output, and log directories plus the history database
//   - Engine: ffmpeg binary and staging cleanup threshold
//   - Mixdown: default reverb, volumes, and beat profile
//   - Preview: live oscillator level and device buffering
//   - TTS: speech synthesis credentials and voice settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Engine  Engine  `toml:"engine"`
	Mixdown Mixdown `toml:"mixdown"`
	Preview Preview `toml:"preview"`
	TTS     TTS     `toml:"tts"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mantra.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the staging, output, and log directories and the
// parent of the history database.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir}
	if strings.TrimSpace(c.Paths.LibraryDB) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LibraryDB))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Reverb returns the configured default reverb settings.
func (c *Config) Reverb() filters.ReverbSettings {
	return filters.ReverbSettings{
		DelayMS: c.Mixdown.DelayMS,
		Decay:   c.Mixdown.Decay,
		Mix:     c.Mixdown.Mix,
	}
}

// Volumes returns the configured default per-stream gains.
func (c *Config) Volumes() filters.VolumeSettings {
	return filters.VolumeSettings{
		Voice:    c.Mixdown.Voice,
		Binaural: c.Mixdown.Binaural,
	}
}

// BeatProfile returns the configured default bed, or beats.None.
func (c *Config) BeatProfile() beats.Profile {
	profile, err := beats.Parse(c.Mixdown.Beat)
	if err != nil {
		return beats.None
	}
	return profile
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
