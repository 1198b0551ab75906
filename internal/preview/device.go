package preview

import (
	"context"
	"io"
	"sync"
	"time"
)

// Player plays one stream until closed.
type Player interface {
	Play()
	Close() error
}

// Device is an audio output that streams interleaved float32 stereo.
type Device interface {
	// Resume makes the device ready to play. It blocks until the output is
	// available or ctx ends.
	Resume(ctx context.Context) error
	NewPlayer(r io.Reader) Player
	Close() error
}

// SilentDevice consumes streams at real-time pace and discards them. It
// backs headless builds and machines without an audio server.
type SilentDevice struct {
	SampleRate int
}

func (SilentDevice) Resume(ctx context.Context) error { return ctx.Err() }

func (d SilentDevice) NewPlayer(r io.Reader) Player {
	rate := d.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &silentPlayer{r: r, rate: rate, done: make(chan struct{})}
}

func (SilentDevice) Close() error { return nil }

type silentPlayer struct {
	r         io.Reader
	rate      int
	playOnce  sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

func (p *silentPlayer) Play() {
	p.playOnce.Do(func() {
		p.wg.Add(1)
		go p.drain()
	})
}

// drain reads 10 ms blocks on a ticker so tone generators advance as they
// would on hardware.
func (p *silentPlayer) drain() {
	defer p.wg.Done()
	block := make([]byte, p.rate/100*frameBytes)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if _, err := io.ReadFull(p.r, block); err != nil {
				return
			}
		}
	}
}

func (p *silentPlayer) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
	return nil
}
