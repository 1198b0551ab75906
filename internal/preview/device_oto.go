//go:build !headless

package preview

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, so every device shares it.
var (
	otoOnce  sync.Once
	otoCtx   *oto.Context
	otoReady chan struct{}
	otoErr   error
)

type otoDevice struct{}

// OpenDevice returns the system audio output. The first call fixes the
// sample rate and buffer for the life of the process.
func OpenDevice(sampleRate, bufferMS int) (Device, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	otoOnce.Do(func() {
		otoCtx, otoReady, otoErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   time.Duration(bufferMS) * time.Millisecond,
		})
	})
	if otoErr != nil {
		return nil, fmt.Errorf("open audio output: %w", otoErr)
	}
	return otoDevice{}, nil
}

func (otoDevice) Resume(ctx context.Context) error {
	select {
	case <-otoReady:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := otoCtx.Err(); err != nil {
		return err
	}
	return otoCtx.Resume()
}

// NewPlayer wraps the oto player: its own Close leaves the player in the
// mixer, so stopping goes through Pause and an ended stream instead.
func (otoDevice) NewPlayer(r io.Reader) Player {
	return newHaltingPlayer(r, func(src io.Reader) pausable {
		return otoCtx.NewPlayer(src)
	})
}

// Close suspends output; the shared context itself lives until exit.
func (otoDevice) Close() error {
	return otoCtx.Suspend()
}
