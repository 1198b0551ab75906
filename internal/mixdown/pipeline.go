package mixdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mantra/internal/audio"
	"mantra/internal/beats"
	"mantra/internal/filters"
	"mantra/internal/logging"
	"mantra/internal/services"
)

// Step names reported in MixdownError and the step log field.
const (
	StepValidate = "validate"
	StepLoad     = "load"
	StepStage    = "stage"
	StepBeats    = "beats"
	StepMix      = "mix"
	StepRead     = "read"
	StepVerify   = "verify"
)

// Staged file roles; names are <render id>-<role>.
const (
	roleInput  = "input.wav"
	roleBeats  = "beats.wav"
	roleOutput = "output.wav"
)

// Engine is the subset of engine.Engine the pipeline drives.
type Engine interface {
	EnsureReady(ctx context.Context) error
	Stage(name string, data []byte) error
	Run(ctx context.Context, graph filters.Graph) error
	ReadFile(name string) ([]byte, error)
	Unstage(ctx context.Context, name string)
}

// Request describes one mixdown.
type Request struct {
	// RenderID names the invocation; a fresh UUID is used when empty.
	RenderID string
	Input    audio.Asset
	Reverb   filters.ReverbSettings
	Volumes  filters.VolumeSettings
	// Beat selects the bed; beats.None renders the voice alone.
	Beat beats.Profile
}

// Validate checks the request without touching the engine.
func (r Request) Validate() error {
	if r.Input.IsEmpty() {
		return &services.InvalidInputError{Field: "input", Value: "0 bytes", Reason: "narration audio is empty"}
	}
	if kind := r.Input.Sniff(); kind == audio.KindUnknown {
		return &services.InvalidInputError{Field: "input", Value: fmt.Sprintf("%d bytes", r.Input.Len()), Reason: "not a WAV or MP3 stream"}
	}
	if err := r.Reverb.Validate(); err != nil {
		return err
	}
	if err := r.Volumes.Validate(); err != nil {
		return err
	}
	if !r.Beat.IsNone() && !r.Beat.Valid() {
		return &services.InvalidInputError{Field: "beat profile", Value: fmt.Sprintf("%q", string(r.Beat)), Reason: "unknown profile"}
	}
	return nil
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline turns narration into the finished mix using one engine.
type Pipeline struct {
	engine Engine
	logger *slog.Logger
}

// New builds a pipeline over engine.
func New(engine Engine, opts ...Option) *Pipeline {
	p := &Pipeline{engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "mixdown")
	return p
}

// Mixdown renders req and returns a 44.1 kHz stereo 16-bit WAV. Settings
// are validated before the engine is touched. Every staged file is removed
// before Mixdown returns, whatever the outcome. Failures are MixdownErrors
// naming the step; the underlying cause stays reachable with errors.Is/As.
func (p *Pipeline) Mixdown(ctx context.Context, req Request) (audio.Asset, error) {
	if err := req.Validate(); err != nil {
		return audio.Asset{}, &services.MixdownError{Step: StepValidate, Err: err}
	}

	renderID := req.RenderID
	if renderID == "" {
		renderID = uuid.NewString()
	}
	ctx = services.WithRenderID(ctx, renderID)
	logger := logging.WithContext(ctx, p.logger)
	start := time.Now()

	var staged []string
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		for _, name := range staged {
			p.engine.Unstage(cleanupCtx, name)
		}
	}()
	track := func(role string) string {
		name := renderID + "-" + role
		staged = append(staged, name)
		return name
	}

	fail := func(step string, err error) (audio.Asset, error) {
		logging.ErrorWithContext(logger, "mixdown failed", "mixdown_failed",
			logging.String(logging.FieldStep, step),
			logging.String("error_kind", services.Classify(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(step)),
		)
		return audio.Asset{}, &services.MixdownError{Step: step, Err: err}
	}

	if err := p.engine.EnsureReady(ctx); err != nil {
		return fail(StepLoad, err)
	}

	input, err := req.Input.AsWAV()
	if err != nil {
		return fail(StepStage, err)
	}
	inputName := track(roleInput)
	if err := p.engine.Stage(inputName, input.Bytes()); err != nil {
		return fail(StepStage, err)
	}
	logger.Debug("input staged", logging.String("name", inputName), logging.Int("bytes", input.Len()))

	var bedName string
	if !req.Beat.IsNone() {
		bedName = track(roleBeats)
		graph, err := filters.BeatBedGraph(req.Beat, bedName)
		if err != nil {
			return fail(StepBeats, err)
		}
		left, right := req.Beat.Tones()
		logging.WithContext(services.WithStep(ctx, StepBeats), p.logger).Debug("synthesizing beat bed",
			logging.String("profile", string(req.Beat)),
			logging.Float64("left_hz", left),
			logging.Float64("right_hz", right),
		)
		if err := p.engine.Run(ctx, graph); err != nil {
			return fail(StepBeats, err)
		}
	}

	outputName := track(roleOutput)
	chain := filters.BuildVoiceChain(req.Reverb, req.Volumes.Voice)
	graph := filters.MixGraph(inputName, bedName, chain, req.Volumes.Binaural, outputName)
	logging.WithContext(services.WithStep(ctx, StepMix), p.logger).Debug("mixing",
		logging.String("filter_complex", graph.FilterComplex),
	)
	if err := p.engine.Run(ctx, graph); err != nil {
		return fail(StepMix, err)
	}

	data, err := p.engine.ReadFile(outputName)
	if err != nil {
		return fail(StepRead, err)
	}
	out := audio.NewAsset(data)
	info, err := verifyOutput(out)
	if err != nil {
		return fail(StepVerify, err)
	}

	logger.Info("mixdown complete",
		logging.String(logging.FieldEventType, "mixdown_complete"),
		logging.String("beat", beatLabel(req.Beat)),
		logging.Duration("audio_duration", info.Duration),
		logging.Int("bytes", out.Len()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func verifyOutput(out audio.Asset) (audio.Info, error) {
	if out.IsEmpty() {
		return audio.Info{}, errors.New("engine produced an empty output")
	}
	info, err := out.Inspect()
	if err != nil {
		return audio.Info{}, err
	}
	if err := info.Require(filters.OutputSampleRate, filters.OutputChannels, filters.OutputBitDepth); err != nil {
		return audio.Info{}, err
	}
	if info.Duration <= 0 {
		return audio.Info{}, errors.New("engine produced no audio frames")
	}
	return info, nil
}

func hintFor(step string) string {
	switch step {
	case StepLoad:
		return "run `mantra status` to check the ffmpeg binary and staging_dir"
	case StepStage, StepRead:
		return "check staging_dir free space and permissions"
	case StepVerify:
		return "check the ffmpeg build supports pcm_s16le output"
	default:
		return "inspect the diagnostics in the error for the failing filter"
	}
}

func beatLabel(p beats.Profile) string {
	if p.IsNone() {
		return "none"
	}
	return string(p)
}
