package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mantra/internal/audio"
	"mantra/internal/services"
)

const (
	defaultBaseURL       = "https://api.elevenlabs.io"
	defaultModelID       = "eleven_monolingual_v1"
	defaultHTTPTimeout   = 60 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = time.Second
	apiKeyHeader         = "xi-api-key"
)

// Config captures the speech vendor settings.
type Config struct {
	APIKey          string
	BaseURL         string
	ModelID         string
	VoiceID         string
	Stability       float64
	SimilarityBoost float64
	TimeoutSeconds  int
}

// Client calls the ElevenLabs text-to-speech streaming endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryAttempts int
	retryDelay    time.Duration
	sleeper       func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides how often and how long to back off on 429/5xx replies.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryDelay = delay
	}
}

// NewClient constructs a client, filling unset fields with vendor defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.ModelID = strings.TrimSpace(cfg.ModelID)
	cfg.VoiceID = strings.TrimSpace(cfg.VoiceID)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}

	c := &Client{
		cfg:           cfg,
		httpClient:    &http.Client{Timeout: timeout},
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelay,
		sleeper:       sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-2xx reply. Body carries the vendor's message.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tts request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize converts text to speech with the configured voice and returns
// the MP3 stream as an asset.
func (c *Client) Synthesize(ctx context.Context, text string) (audio.Asset, error) {
	return c.SynthesizeWithVoice(ctx, text, c.cfg.VoiceID)
}

// SynthesizeWithVoice is Synthesize with an explicit voice id.
func (c *Client) SynthesizeWithVoice(ctx context.Context, text, voiceID string) (audio.Asset, error) {
	if c.cfg.APIKey == "" {
		return audio.Asset{}, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "tts.api_key is not set", nil)
	}
	if strings.TrimSpace(text) == "" {
		return audio.Asset{}, &services.InvalidInputError{Field: "text", Value: `""`, Reason: "nothing to synthesize"}
	}
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return audio.Asset{}, &services.InvalidInputError{Field: "voice id", Value: `""`, Reason: "must not be empty"}
	}

	payload := speechRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.SimilarityBoost,
		},
	}

	attempts := max(c.retryAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		data, err := c.sendOnce(ctx, voiceID, payload)
		if err == nil {
			if len(data) == 0 {
				return audio.Asset{}, errors.New("tts request: empty audio response")
			}
			return audio.NewAsset(data), nil
		}
		lastErr = err

		var statusErr *StatusError
		if !errors.As(err, &statusErr) || !statusErr.retryable() || attempt == attempts {
			break
		}
		if err := c.sleeper(ctx, c.retryDelay*time.Duration(attempt)); err != nil {
			return audio.Asset{}, err
		}
	}
	return audio.Asset{}, services.Wrap(services.ErrExternalTool, "tts", "synthesize", "speech request failed", lastErr)
}

func (c *Client) sendOnce(ctx context.Context, voiceID string, payload speechRequest) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "text-to-speech", voiceID, "stream")
	if err != nil {
		return nil, fmt.Errorf("tts request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tts request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("tts request: new request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts request: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
