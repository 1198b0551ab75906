package audio_test

import (
	"bytes"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"mantra/internal/audio"
	"mantra/internal/testsupport"
)

func TestSniff(t *testing.T) {
	wav := testsupport.SilenceWAV(t, 8000, 1, 10*time.Millisecond)
	tests := []struct {
		name string
		data []byte
		want audio.Kind
	}{
		{name: "wav", data: wav.Bytes(), want: audio.KindWAV},
		{name: "id3", data: []byte("ID3\x04\x00\x00"), want: audio.KindMP3},
		{name: "frame sync", data: []byte{0xFF, 0xFB, 0x90, 0x00}, want: audio.KindMP3},
		{name: "text", data: []byte("hello"), want: audio.KindUnknown},
		{name: "empty", data: nil, want: audio.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := audio.NewAsset(tt.data).Sniff(); got != tt.want {
				t.Fatalf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetIsImmutable(t *testing.T) {
	src := []byte{1, 2, 3}
	asset := audio.NewAsset(src)
	src[0] = 9
	out := asset.Bytes()
	out[1] = 9
	if got := asset.Bytes(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("asset mutated: %v", got)
	}
	if asset.Len() != 3 || asset.IsEmpty() {
		t.Fatalf("unexpected length %d", asset.Len())
	}
	if !(audio.Asset{}).IsEmpty() {
		t.Fatal("zero asset should be empty")
	}
}

func TestInspectEncodedPCM(t *testing.T) {
	asset := testsupport.SilenceWAV(t, 44100, 2, 2*time.Second)

	info, err := asset.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 2 || info.BitDepth != 16 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Duration < 1990*time.Millisecond || info.Duration > 2010*time.Millisecond {
		t.Fatalf("duration = %v, want ~2s", info.Duration)
	}
	if err := info.Require(44100, 2, 16); err != nil {
		t.Fatalf("Require: %v", err)
	}
	if err := info.Require(48000, 2, 16); err == nil {
		t.Fatal("expected layout mismatch")
	}
}

func TestInspectRejectsNonWAV(t *testing.T) {
	_, err := audio.NewAsset([]byte("definitely not audio")).Inspect()
	if !errors.Is(err, audio.ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
}

func TestChannelRMS(t *testing.T) {
	asset := testsupport.SineWAV(t, 8000, 440, 0.5, time.Second)

	levels, err := asset.ChannelRMS(0, time.Second)
	if err != nil {
		t.Fatalf("ChannelRMS: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(levels))
	}
	// A sine at amplitude A has RMS A/sqrt(2).
	for c, level := range levels {
		if level < 0.34 || level > 0.37 {
			t.Fatalf("channel %d rms = %f, want ~0.354", c, level)
		}
	}

	past, err := asset.ChannelRMS(5*time.Second, 6*time.Second)
	if err != nil {
		t.Fatalf("ChannelRMS past end: %v", err)
	}
	if past[0] != 0 || past[1] != 0 {
		t.Fatalf("expected zero levels past the end, got %v", past)
	}
}

func TestAsWAVPassesThroughWAV(t *testing.T) {
	asset := testsupport.SilenceWAV(t, 22050, 1, 100*time.Millisecond)
	out, err := asset.AsWAV()
	if err != nil {
		t.Fatalf("AsWAV: %v", err)
	}
	if !bytes.Equal(out.Bytes(), asset.Bytes()) {
		t.Fatal("expected WAV input to pass through unchanged")
	}
	if _, err := audio.NewAsset([]byte("nope")).AsWAV(); err == nil {
		t.Fatal("expected error for unknown container")
	}
}

func TestDecodeMP3RejectsGarbage(t *testing.T) {
	if _, err := audio.DecodeMP3(bytes.NewReader([]byte("not an mp3 stream at all"))); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeMP3FromFFmpeg(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	path := filepath.Join(t.TempDir(), "tone.mp3")
	cmd := exec.Command(ffmpeg, "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1",
		"-ar", "44100", "-ac", "2", "-codec:a", "libmp3lame", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("ffmpeg cannot encode mp3: %v: %s", err, out)
	}

	mp3, err := audio.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if mp3.Sniff() != audio.KindMP3 {
		t.Fatalf("expected mp3 sniff, got %q", mp3.Sniff())
	}
	wav, err := mp3.AsWAV()
	if err != nil {
		t.Fatalf("AsWAV: %v", err)
	}
	info, err := wav.Inspect()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.SampleRate != 44100 || info.Channels != 2 || info.BitDepth != 16 {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.Duration < 900*time.Millisecond {
		t.Fatalf("duration = %v, want ~1s", info.Duration)
	}
}
