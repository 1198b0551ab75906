package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mantra/internal/beats"
	"mantra/internal/logging"
	"mantra/internal/preview"
)

// openPreviewDevice is swapped in tests.
var openPreviewDevice = preview.OpenDevice

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var volume float64
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "preview <profile>",
		Short: "Play a binaural beat profile live until interrupted",
		Long: `Play the left/right sine pair of a beat profile on the default audio device.

Playback runs until Ctrl+C, or for --duration when set. Use headphones: the
beat only appears when each ear hears its own tone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			profile, err := beats.Parse(args[0])
			if err != nil {
				return err
			}
			if profile.IsNone() {
				return fmt.Errorf("preview needs a beat profile; choose one of %v", beats.Names())
			}
			if !cmd.Flags().Changed("volume") {
				volume = cfg.Preview.Volume
			}

			device, err := openPreviewDevice(cfg.Preview.SampleRate, cfg.Preview.BufferMS)
			if err != nil {
				return fmt.Errorf("open audio device: %w", err)
			}
			session := preview.NewSession(device,
				preview.WithSampleRate(cfg.Preview.SampleRate),
				preview.WithLogger(logging.NewComponentLogger(logger, "preview")),
			)
			defer func() {
				_ = session.Cleanup()
			}()

			if err := session.SetVolume(volume); err != nil {
				return err
			}

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			runCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, duration)
				defer cancel()
			}

			if err := session.Start(parent, profile); err != nil {
				return err
			}
			left, right := profile.Tones()
			out := cmd.OutOrStdout()
			if ctx.JSONMode() {
				if err := writeJSON(cmd, map[string]any{
					"profile":  string(profile),
					"left_hz":  left,
					"right_hz": right,
					"beat_hz":  profile.BeatHz(),
					"gain":     session.Gain(),
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Playing %s: %g Hz left, %g Hz right (%g Hz beat). Press Ctrl+C to stop.\n",
					profile.DisplayName(), left, right, profile.BeatHz())
			}

			<-runCtx.Done()
			if err := session.Stop(); err != nil {
				return err
			}
			if !ctx.JSONMode() {
				fmt.Fprintln(out, "Stopped")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&volume, "volume", 0, "Preview volume 0-1 (default: preview.volume)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 plays until interrupted)")
	return cmd
}
