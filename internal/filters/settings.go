package filters

import (
	"fmt"
	"math"

	"mantra/internal/services"
)

// Accepted parameter ranges. Values outside them are rejected, never clamped.
const (
	MaxDelayMS      = 500
	MaxDecay        = 0.9
	MaxMix          = 0.5
	MaxVoiceGain    = 4.0
	MaxBinauralGain = 1.0
)

// ReverbSettings parameterise the hall echo.
type ReverbSettings struct {
	DelayMS int     `json:"delay_ms" toml:"delay_ms"`
	Decay   float64 `json:"decay" toml:"decay"`
	Mix     float64 `json:"mix" toml:"mix"`
}

// VolumeSettings are the per-stream linear gains. Voice above 1.0 is a boost.
type VolumeSettings struct {
	Voice    float64 `json:"voice" toml:"voice"`
	Binaural float64 `json:"binaural" toml:"binaural"`
}

// DefaultReverb returns the stock hall settings.
func DefaultReverb() ReverbSettings {
	return ReverbSettings{DelayMS: 100, Decay: 0.4, Mix: 0.25}
}

// DefaultVolumes returns unity voice gain with the bed at half level.
func DefaultVolumes() VolumeSettings {
	return VolumeSettings{Voice: 1.0, Binaural: 0.5}
}

// Validate reports the first out-of-range field.
func (r ReverbSettings) Validate() error {
	if r.DelayMS < 0 || r.DelayMS > MaxDelayMS {
		return outOfRange("reverb delay_ms", r.DelayMS, 0, MaxDelayMS)
	}
	if err := checkRange("reverb decay", r.Decay, MaxDecay); err != nil {
		return err
	}
	return checkRange("reverb mix", r.Mix, MaxMix)
}

// Validate reports the first out-of-range field.
func (v VolumeSettings) Validate() error {
	if err := checkRange("voice volume", v.Voice, MaxVoiceGain); err != nil {
		return err
	}
	return checkRange("binaural volume", v.Binaural, MaxBinauralGain)
}

func checkRange(field string, value, max float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &services.InvalidInputError{Field: field, Value: value, Reason: "must be a finite number"}
	}
	if value < 0 || value > max {
		return outOfRange(field, value, 0, max)
	}
	return nil
}

func outOfRange(field string, value any, min, max float64) error {
	return &services.InvalidInputError{
		Field:  field,
		Value:  value,
		Reason: fmt.Sprintf("must be within %s..%s", formatNumber(min), formatNumber(max)),
	}
}
