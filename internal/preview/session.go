package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"mantra/internal/beats"
	"mantra/internal/logging"
	"mantra/internal/services"
)

// ErrClosed is returned by every Session method after Cleanup.
var ErrClosed = errors.New("preview session closed")

// Option configures a Session.
type Option func(*Session)

// WithSampleRate sets the oscillator rate; it must match the device.
func WithSampleRate(rate int) Option {
	return func(s *Session) {
		if rate > 0 {
			s.rate = rate
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type active struct {
	profile beats.Profile
	tone    *ToneSource
	player  Player
}

// Session owns the live oscillator. At most one tone graph plays at a time;
// Start replaces the current one after stopping it.
type Session struct {
	device Device
	rate   int
	logger *slog.Logger

	mu      sync.Mutex
	gain    float64
	current *active
	closed  bool
}

// NewSession wraps device. Nothing plays until Start.
func NewSession(device Device, opts ...Option) *Session {
	s := &Session{
		device: device,
		rate:   DefaultSampleRate,
		logger: logging.NewNop(),
		gain:   InitialMasterGain,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "preview")
	return s
}

// Start plays profile, stopping any session already playing first. The
// session lock is held while the device resumes, so SetVolume, Stop, and
// Cleanup called meanwhile wait until Start returns.
func (s *Session) Start(ctx context.Context, profile beats.Profile) error {
	if !profile.Valid() {
		return &services.InvalidInputError{
			Field:  "beat profile",
			Value:  fmt.Sprintf("%q", string(profile)),
			Reason: "preview needs one of " + fmt.Sprint(beats.Names()),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.stopLocked()

	if err := s.device.Resume(ctx); err != nil {
		return fmt.Errorf("resume audio device: %w", err)
	}
	left, right := profile.Tones()
	tone := NewToneSource(s.rate, left, right, s.gain)
	player := s.device.NewPlayer(tone)
	player.Play()
	s.current = &active{profile: profile, tone: tone, player: player}

	s.logger.Info("preview started",
		logging.String("profile", string(profile)),
		logging.Float64("left_hz", left),
		logging.Float64("right_hz", right),
		logging.Float64("master_gain", s.gain),
	)
	return nil
}

// SetVolume sets the master gain to clamp(v, 0, 1) * 0.5. While idle the
// level is kept for the next Start.
func (s *Session) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.gain = MasterGain(v)
	if s.current != nil {
		s.current.tone.SetGain(s.gain)
	}
	return nil
}

// MasterGain maps a user volume to the master gain.
func MasterGain(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 1:
		return 0.5
	default:
		return v * 0.5
	}
}

// Stop silences the current session. Stopping while idle does nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.stopLocked()
	return nil
}

func (s *Session) stopLocked() {
	if s.current == nil {
		return
	}
	if err := s.current.player.Close(); err != nil {
		logging.WarnWithContext(s.logger, "preview player close failed", "preview_close_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the previous tone may keep playing until exit"),
		)
	}
	s.logger.Debug("preview stopped", logging.String("profile", string(s.current.profile)))
	s.current = nil
}

// Cleanup stops playback and releases the device. The session cannot be
// used afterwards.
func (s *Session) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.stopLocked()
	s.closed = true
	if err := s.device.Close(); err != nil {
		return fmt.Errorf("close audio device: %w", err)
	}
	return nil
}

// Playing reports whether a tone graph is active.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Profile returns the playing profile, or beats.None when idle.
func (s *Session) Profile() beats.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return beats.None
	}
	return s.current.profile
}

// Gain returns the master gain the next or current tone uses.
func (s *Session) Gain() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gain
}
