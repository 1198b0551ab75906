package preview

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

const (
	// DefaultSampleRate is the preview output rate when none is configured.
	DefaultSampleRate = 48000
	// EarGain is the fixed level of each ear's oscillator before the master gain.
	EarGain = 0.5
	// InitialMasterGain is the master gain a fresh session starts with.
	InitialMasterGain = 0.2

	channels   = 2
	frameBytes = channels * 4
)

// ToneSource is the oscillator graph for one session: two sine generators,
// one per ear, merged into interleaved float32 little-endian stereo and
// scaled by a master gain. It never ends on its own.
type ToneSource struct {
	rate        float64
	left, right float64
	phaseL      float64
	phaseR      float64
	gain        atomic.Uint64
}

// NewToneSource builds a generator at sampleRate with the given ear frequencies.
func NewToneSource(sampleRate int, leftHz, rightHz, masterGain float64) *ToneSource {
	t := &ToneSource{rate: float64(sampleRate), left: leftHz, right: rightHz}
	t.SetGain(masterGain)
	return t
}

// SetGain changes the master gain; safe to call while the device reads.
func (t *ToneSource) SetGain(g float64) {
	t.gain.Store(math.Float64bits(g))
}

// Gain returns the current master gain.
func (t *ToneSource) Gain() float64 {
	return math.Float64frombits(t.gain.Load())
}

// Frequencies returns the left and right oscillator frequencies.
func (t *ToneSource) Frequencies() (left, right float64) {
	return t.left, t.right
}

// Read fills p with whole stereo frames. Trailing bytes that do not make up
// a full frame are left untouched and not counted.
func (t *ToneSource) Read(p []byte) (int, error) {
	frames := len(p) / frameBytes
	level := EarGain * t.Gain()
	stepL := 2 * math.Pi * t.left / t.rate
	stepR := 2 * math.Pi * t.right / t.rate
	for i := range frames {
		l := float32(level * math.Sin(t.phaseL))
		r := float32(level * math.Sin(t.phaseR))
		binary.LittleEndian.PutUint32(p[i*frameBytes:], math.Float32bits(l))
		binary.LittleEndian.PutUint32(p[i*frameBytes+4:], math.Float32bits(r))
		t.phaseL = math.Mod(t.phaseL+stepL, 2*math.Pi)
		t.phaseR = math.Mod(t.phaseR+stepR, 2*math.Pi)
	}
	return frames * frameBytes, nil
}
