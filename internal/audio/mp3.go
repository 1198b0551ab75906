package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always yields interleaved stereo 16-bit little-endian PCM.
const mp3Channels = 2

// DecodeMP3 converts an MP3 stream into a 16-bit stereo WAV asset at the
// stream's native sample rate.
func DecodeMP3(r io.Reader) (Asset, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return Asset{}, fmt.Errorf("open mp3: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return Asset{}, fmt.Errorf("decode mp3: %w", err)
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	if len(samples) == 0 {
		return Asset{}, errors.New("decode mp3: no audio frames")
	}
	return EncodePCM16(dec.SampleRate(), mp3Channels, samples)
}

// AsWAV returns a WAV rendition of the asset, decoding MP3 when needed.
func (a Asset) AsWAV() (Asset, error) {
	switch a.Sniff() {
	case KindWAV:
		return a, nil
	case KindMP3:
		return DecodeMP3(a.Reader())
	default:
		return Asset{}, fmt.Errorf("unsupported audio container (%d bytes)", a.Len())
	}
}
