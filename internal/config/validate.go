package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"mantra/internal/beats"
)

// Validate ensures the configuration is usable. Missing TTS credentials are
// not an error here; only commands that synthesize speech require them.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMixdown(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateMixdown() error {
	if err := c.Reverb().Validate(); err != nil {
		return fmt.Errorf("mixdown: %w", err)
	}
	if err := c.Volumes().Validate(); err != nil {
		return fmt.Errorf("mixdown: %w", err)
	}
	if _, err := beats.Parse(c.Mixdown.Beat); err != nil {
		return fmt.Errorf("mixdown.beat: %w", err)
	}
	return nil
}

func (c *Config) validatePreview() error {
	if c.Preview.Volume < 0 || c.Preview.Volume > 1 {
		return errors.New("preview.volume must be between 0 and 1")
	}
	if c.Preview.SampleRate < 8000 || c.Preview.SampleRate > 192000 {
		return errors.New("preview.sample_rate must be between 8000 and 192000")
	}
	return nil
}

func (c *Config) validateTTS() error {
	parsed, err := url.Parse(c.TTS.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("tts.base_url %q must be an absolute URL", c.TTS.BaseURL)
	}
	if c.TTS.Stability < 0 || c.TTS.Stability > 1 {
		return errors.New("tts.stability must be between 0 and 1")
	}
	if c.TTS.SimilarityBoost < 0 || c.TTS.SimilarityBoost > 1 {
		return errors.New("tts.similarity_boost must be between 0 and 1")
	}
	return nil
}

// RequireTTS reports whether speech synthesis is configured.
func (c *Config) RequireTTS() error {
	if c.TTS.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("tts.api_key is required. Set ELEVENLABS_API_KEY env var or edit %s (create with 'mantra config init')", defaultPath)
}
