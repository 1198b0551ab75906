package testsupport

import (
	"math"
	"testing"
	"time"

	"mantra/internal/audio"
)

// SineWAV renders a 16-bit stereo sine tone at the given amplitude
// (0..1 of full scale).
func SineWAV(t testing.TB, sampleRate int, freq, amplitude float64, length time.Duration) audio.Asset {
	t.Helper()

	frames := int(length.Seconds() * float64(sampleRate))
	samples := make([]int, frames*2)
	for i := range frames {
		v := int(math.Round(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))))
		samples[2*i] = v
		samples[2*i+1] = v
	}
	asset, err := audio.EncodePCM16(sampleRate, 2, samples)
	if err != nil {
		t.Fatalf("encode sine fixture: %v", err)
	}
	return asset
}

// SilenceWAV renders digital silence in the given layout.
func SilenceWAV(t testing.TB, sampleRate, channels int, length time.Duration) audio.Asset {
	t.Helper()

	frames := int(length.Seconds() * float64(sampleRate))
	asset, err := audio.EncodePCM16(sampleRate, channels, make([]int, frames*channels))
	if err != nil {
		t.Fatalf("encode silence fixture: %v", err)
	}
	return asset
}
