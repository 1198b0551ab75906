package preview

import (
	"io"
	"sync"
	"sync/atomic"
)

// pausable is the playback control a device-native player offers. Closing
// such a player does not necessarily stop the device from pulling samples.
type pausable interface {
	Play()
	Pause()
}

// haltingReader ends its stream once halted, so an output mixer that keeps
// pulling from a finished player gets io.EOF instead of more tone.
type haltingReader struct {
	r      io.Reader
	halted atomic.Bool
}

func (h *haltingReader) Read(p []byte) (int, error) {
	if h.halted.Load() {
		return 0, io.EOF
	}
	return h.r.Read(p)
}

func (h *haltingReader) halt() {
	h.halted.Store(true)
}

// haltingPlayer adapts a pausable player to Player. Close pauses it and cuts
// its stream, which stops output immediately and lets the device drop it.
type haltingPlayer struct {
	player pausable
	reader *haltingReader
	once   sync.Once
}

func newHaltingPlayer(r io.Reader, open func(io.Reader) pausable) *haltingPlayer {
	reader := &haltingReader{r: r}
	return &haltingPlayer{player: open(reader), reader: reader}
}

func (p *haltingPlayer) Play() {
	if p.reader.halted.Load() {
		return
	}
	p.player.Play()
}

func (p *haltingPlayer) Close() error {
	p.once.Do(func() {
		p.reader.halt()
		p.player.Pause()
	})
	return nil
}
