package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mantra/internal/audio"
	"mantra/internal/beats"
	"mantra/internal/config"
	"mantra/internal/engine"
	"mantra/internal/fileutil"
	"mantra/internal/filters"
	"mantra/internal/library"
	"mantra/internal/logging"
	"mantra/internal/mixdown"
	"mantra/internal/script"
	"mantra/internal/services"
	"mantra/internal/services/tts"
	"mantra/internal/staging"
	"mantra/internal/textutil"
)

type renderOptions struct {
	input    string
	preset   string
	text     string
	beat     string
	delayMS  int
	decay    float64
	mix      float64
	voice    float64
	binaural float64
	output   string
	timeout  time.Duration
}

type renderResult struct {
	ID         string  `json:"id"`
	OutputPath string  `json:"output_path"`
	Beat       string  `json:"beat"`
	DurationMS int64   `json:"duration_ms"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	DelayMS    int     `json:"delay_ms"`
	Decay      float64 `json:"decay"`
	Mix        float64 `json:"mix"`
	Voice      float64 `json:"voice_volume"`
	Binaural   float64 `json:"binaural_volume"`
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Mix narration with hall reverb and an optional binaural bed",
		Long: `Render a narration track to a 44.1 kHz stereo 16-bit WAV.

The narration comes from exactly one of:
  --input   an existing WAV or MP3 file
  --script  a built-in affirmation preset, synthesized via the TTS service
  --text    free text split into sentences, synthesized via the TTS service

Reverb, volume, and beat flags default to the [mixdown] section of the
configuration file. Use --beat none to skip the binaural bed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			req, err := resolveRenderSettings(cmd, cfg, opts)
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, opts.timeout)
				defer cancel()
			}

			result, err := runRender(runCtx, cfg, logger, opts, req)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, result)
			}
			printRenderResult(cmd, result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "Narration audio file (WAV or MP3)")
	flags.StringVar(&opts.preset, "script", "", "Affirmation preset to synthesize ("+strings.Join(presetIDs(), ", ")+")")
	flags.StringVar(&opts.text, "text", "", "Free text to synthesize")
	flags.StringVarP(&opts.beat, "beat", "b", "", "Binaural beat profile (none, "+strings.Join(beats.Names(), ", ")+")")
	flags.IntVar(&opts.delayMS, "delay", 0, fmt.Sprintf("Reverb delay in milliseconds (0-%d)", filters.MaxDelayMS))
	flags.Float64Var(&opts.decay, "decay", 0, fmt.Sprintf("Reverb decay (0-%g)", filters.MaxDecay))
	flags.Float64Var(&opts.mix, "mix", 0, fmt.Sprintf("Reverb wet level (0-%g)", filters.MaxMix))
	flags.Float64Var(&opts.voice, "voice", 0, fmt.Sprintf("Voice volume (0-%g)", filters.MaxVoiceGain))
	flags.Float64Var(&opts.binaural, "binaural", 0, fmt.Sprintf("Binaural bed volume (0-%g)", filters.MaxBinauralGain))
	flags.StringVarP(&opts.output, "output", "o", "", "Destination WAV path (default: a new file in paths.output_dir)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Abort the render after this long (0 disables)")
	cmd.MarkFlagsMutuallyExclusive("input", "script", "text")

	return cmd
}

// resolveRenderSettings starts from the configured defaults and applies only
// the flags the user actually set.
func resolveRenderSettings(cmd *cobra.Command, cfg *config.Config, opts renderOptions) (mixdown.Request, error) {
	flags := cmd.Flags()
	reverb := cfg.Reverb()
	if flags.Changed("delay") {
		reverb.DelayMS = opts.delayMS
	}
	if flags.Changed("decay") {
		reverb.Decay = opts.decay
	}
	if flags.Changed("mix") {
		reverb.Mix = opts.mix
	}
	volumes := cfg.Volumes()
	if flags.Changed("voice") {
		volumes.Voice = opts.voice
	}
	if flags.Changed("binaural") {
		volumes.Binaural = opts.binaural
	}

	profile := cfg.BeatProfile()
	if flags.Changed("beat") {
		parsed, err := beats.Parse(opts.beat)
		if err != nil {
			return mixdown.Request{}, err
		}
		profile = parsed
	}

	if strings.TrimSpace(opts.input) == "" && strings.TrimSpace(opts.preset) == "" && strings.TrimSpace(opts.text) == "" {
		return mixdown.Request{}, &services.InvalidInputError{
			Field:  "narration",
			Value:  "none",
			Reason: "pass one of --input, --script, or --text",
		}
	}

	req := mixdown.Request{Reverb: reverb, Volumes: volumes, Beat: profile}
	if err := reverb.Validate(); err != nil {
		return mixdown.Request{}, err
	}
	if err := volumes.Validate(); err != nil {
		return mixdown.Request{}, err
	}
	return req, nil
}

func runRender(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts renderOptions, req mixdown.Request) (renderResult, error) {
	renderID := uuid.NewString()
	req.RenderID = renderID
	ctx = services.WithRenderID(ctx, renderID)
	logger = logging.NewComponentLogger(logger, "render")
	log := logging.WithContext(ctx, logger)

	if hours := cfg.Engine.StaleStagingHours; hours > 0 {
		swept := staging.CleanStale(ctx, cfg.Paths.StagingDir, time.Duration(hours)*time.Hour, logger)
		if len(swept.Removed) > 0 {
			log.Info("stale staging swept", logging.Int("removed", len(swept.Removed)))
		}
	}

	input, source, err := loadNarration(ctx, cfg, opts, logger)
	if err != nil {
		return renderResult{}, err
	}
	req.Input = input

	store, err := library.Open(cfg)
	if err != nil {
		return renderResult{}, err
	}
	defer store.Close()

	record, err := store.Begin(ctx, library.Render{
		ID:      renderID,
		Source:  source,
		Beat:    string(req.Beat),
		Reverb:  req.Reverb,
		Volumes: req.Volumes,
	})
	if err != nil {
		return renderResult{}, err
	}

	result, err := mixAndExport(ctx, cfg, logger, opts, req, source)
	if err != nil {
		if failErr := store.Fail(context.WithoutCancel(ctx), record.ID, err); failErr != nil {
			logging.WarnWithContext(log, "render history not updated", "library_update_failed",
				logging.Error(failErr),
				logging.String(logging.FieldImpact, "library shows the render as running"),
			)
		}
		return renderResult{}, err
	}
	if err := store.Complete(ctx, record.ID, result.OutputPath, time.Duration(result.DurationMS)*time.Millisecond); err != nil {
		return renderResult{}, err
	}
	log.Info("render complete",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("output", result.OutputPath),
		logging.Int64("duration_ms", result.DurationMS),
	)
	return result, nil
}

func mixAndExport(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts renderOptions, req mixdown.Request, source string) (renderResult, error) {
	eng := engine.New(cfg.Paths.StagingDir,
		engine.WithBinary(cfg.Engine.FFmpegBinary),
		engine.WithLogger(logger),
	)
	defer func() {
		if err := eng.Terminate(); err != nil {
			logging.WarnWithContext(logger, "engine terminate failed", "engine_terminate_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a staging directory may remain until the next sweep"),
				logging.String(logging.FieldErrorHint, "run mantra staging clean"),
			)
		}
	}()

	pipeline := mixdown.New(eng, mixdown.WithLogger(logger))
	out, err := pipeline.Mixdown(ctx, req)
	if err != nil {
		return renderResult{}, err
	}
	info, err := out.Inspect()
	if err != nil {
		return renderResult{}, err
	}

	dest, err := outputPath(cfg, opts.output, req, source)
	if err != nil {
		return renderResult{}, err
	}
	if err := fileutil.WriteFileVerified(dest, out.Bytes(), 0o644); err != nil {
		return renderResult{}, services.Wrap(services.ErrMixdown, "render", "export", "write output", err)
	}

	return renderResult{
		ID:         req.RenderID,
		OutputPath: dest,
		Beat:       string(req.Beat),
		DurationMS: info.Duration.Milliseconds(),
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		DelayMS:    req.Reverb.DelayMS,
		Decay:      req.Reverb.Decay,
		Mix:        req.Reverb.Mix,
		Voice:      req.Volumes.Voice,
		Binaural:   req.Volumes.Binaural,
	}, nil
}

// loadNarration returns the narration audio and a short label describing
// where it came from.
func loadNarration(ctx context.Context, cfg *config.Config, opts renderOptions, logger *slog.Logger) (audio.Asset, string, error) {
	if path := strings.TrimSpace(opts.input); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return audio.Asset{}, "", err
		}
		asset, err := audio.ReadFile(expanded)
		if err != nil {
			return audio.Asset{}, "", &services.InvalidInputError{Field: "input", Value: path, Reason: err.Error()}
		}
		return asset, "file:" + filepath.Base(expanded), nil
	}

	var (
		text   string
		source string
		err    error
	)
	if id := strings.TrimSpace(opts.preset); id != "" {
		text, err = script.FromPreset(id)
		source = "preset:" + id
	} else {
		text, err = script.FromText(opts.text)
		source = "text"
	}
	if err != nil {
		return audio.Asset{}, "", err
	}
	if err := cfg.RequireTTS(); err != nil {
		return audio.Asset{}, "", fmt.Errorf("%w: %w", services.ErrConfiguration, err)
	}

	client := tts.NewClient(tts.Config(cfg.TTS))
	logging.WithContext(ctx, logger).Info("synthesizing narration",
		logging.String("source", source),
		logging.Int("characters", len(text)),
	)
	asset, err := client.Synthesize(ctx, text)
	if err != nil {
		return audio.Asset{}, "", err
	}
	return asset, source, nil
}

func outputPath(cfg *config.Config, requested string, req mixdown.Request, source string) (string, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		expanded, err := config.ExpandPath(requested)
		if err != nil {
			return "", err
		}
		if !strings.EqualFold(filepath.Ext(expanded), ".wav") {
			return "", &services.InvalidInputError{Field: "output", Value: requested, Reason: "must end in .wav"}
		}
		return expanded, nil
	}
	if strings.TrimSpace(cfg.Paths.OutputDir) == "" {
		return "", errors.New("paths.output_dir is not configured; pass --output")
	}
	name := "mantra-" + time.Now().Format("20060102-150405") + "-" + textutil.SourceSlug(source)
	if !req.Beat.IsNone() {
		name += "-" + string(req.Beat)
	}
	return fileutil.UniquePath(cfg.Paths.OutputDir, name, ".wav")
}

func printRenderResult(cmd *cobra.Command, result renderResult) {
	out := cmd.OutOrStdout()
	beat := result.Beat
	if beat == "" {
		beat = "none"
	}
	fmt.Fprintf(out, "Rendered %s\n", result.OutputPath)
	fmt.Fprintf(out, "  Render:   %s\n", result.ID)
	fmt.Fprintf(out, "  Length:   %s\n", formatClock(time.Duration(result.DurationMS)*time.Millisecond))
	fmt.Fprintf(out, "  Beat:     %s\n", beat)
	fmt.Fprintf(out, "  Reverb:   %d ms, decay %s, mix %s\n", result.DelayMS, trimFloat(result.Decay), trimFloat(result.Mix))
	fmt.Fprintf(out, "  Volumes:  voice %s, binaural %s\n", trimFloat(result.Voice), trimFloat(result.Binaural))
}

func presetIDs() []string {
	presets := script.Presets()
	ids := make([]string, 0, len(presets))
	for _, p := range presets {
		ids = append(ids, p.ID)
	}
	return ids
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
