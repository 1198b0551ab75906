package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when a blob has no valid RIFF/WAVE header.
var ErrNotWAV = errors.New("not a wav file")

const pcmFormat = 1

// Info describes a PCM WAV blob.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Format     int
	Duration   time.Duration
}

// Inspect reads the WAV header.
func (a Asset) Inspect() (Info, error) {
	dec := wav.NewDecoder(a.Reader())
	if !dec.IsValidFile() {
		return Info{}, ErrNotWAV
	}
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Info{}, fmt.Errorf("read wav header: %w", err)
	}
	duration, err := dec.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("wav duration: %w", err)
	}
	return Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Format:     int(dec.WavAudioFormat),
		Duration:   duration,
	}, nil
}

// Require reports an error unless the blob is PCM at the given layout.
func (i Info) Require(sampleRate, channels, bitDepth int) error {
	if i.Format != pcmFormat {
		return fmt.Errorf("wav format %d, want PCM", i.Format)
	}
	if i.SampleRate != sampleRate || i.Channels != channels || i.BitDepth != bitDepth {
		return fmt.Errorf("wav is %d Hz/%d ch/%d-bit, want %d Hz/%d ch/%d-bit",
			i.SampleRate, i.Channels, i.BitDepth, sampleRate, channels, bitDepth)
	}
	return nil
}

// PCM decodes the full sample buffer.
func (a Asset) PCM() (*goaudio.IntBuffer, error) {
	dec := wav.NewDecoder(a.Reader())
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	return buf, nil
}

// ChannelRMS returns per-channel RMS levels, normalised to full scale, over
// the window [from, to). The window is clipped to the blob's length.
func (a Asset) ChannelRMS(from, to time.Duration) ([]float64, error) {
	buf, err := a.PCM()
	if err != nil {
		return nil, err
	}
	channels := buf.Format.NumChannels
	rate := buf.Format.SampleRate
	if channels <= 0 || rate <= 0 {
		return nil, fmt.Errorf("wav layout %d ch at %d Hz", channels, rate)
	}
	full := math.Pow(2, float64(buf.SourceBitDepth-1))
	frames := len(buf.Data) / channels
	start := min(int(from.Seconds()*float64(rate)), frames)
	end := min(int(to.Seconds()*float64(rate)), frames)

	sums := make([]float64, channels)
	for f := start; f < end; f++ {
		for c := range channels {
			v := float64(buf.Data[f*channels+c]) / full
			sums[c] += v * v
		}
	}
	levels := make([]float64, channels)
	if n := end - start; n > 0 {
		for c := range levels {
			levels[c] = math.Sqrt(sums[c] / float64(n))
		}
	}
	return levels, nil
}

// EncodePCM16 wraps interleaved 16-bit samples in a WAV container.
func EncodePCM16(sampleRate, channels int, samples []int) (Asset, error) {
	ws := &writeSeeker{}
	enc := wav.NewEncoder(ws, sampleRate, 16, channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return Asset{}, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return Asset{}, fmt.Errorf("finalize wav: %w", err)
	}
	return Asset{data: ws.buf}, nil
}

// writeSeeker is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes on Close.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(w.pos) + offset
	case io.SeekEnd:
		next = int64(len(w.buf)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("seek: negative position")
	}
	w.pos = int(next)
	return next, nil
}
