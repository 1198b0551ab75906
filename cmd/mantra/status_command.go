package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mantra/internal/library"
	"mantra/internal/preflight"
	"mantra/internal/staging"
)

type statusReport struct {
	FFmpeg  preflight.Result   `json:"ffmpeg"`
	Checks  []preflight.Result `json:"checks"`
	Renders map[string]int     `json:"renders"`
	Staging int                `json:"staging_directories"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check ffmpeg, directories, speech synthesis, and render history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()

			report := statusReport{
				FFmpeg:  preflight.CheckFFmpegFromConfig(runCtx, cfg),
				Checks:  preflight.RunAll(runCtx, cfg),
				Renders: map[string]int{},
			}
			if strings.TrimSpace(cfg.TTS.APIKey) == "" {
				report.Checks = append(report.Checks, preflight.CheckTTSFromConfig(runCtx, cfg))
			}
			if dirs, err := staging.ListDirectories(cfg.Paths.StagingDir); err == nil {
				report.Staging = len(dirs)
			}
			libErr := ctx.withLibrary(func(store *library.Store) error {
				stats, err := store.Stats(runCtx)
				if err != nil {
					return err
				}
				for status, count := range stats {
					report.Renders[string(status)] = count
				}
				return nil
			})

			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			emit := func(lines ...string) {
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
			}

			emit(renderSectionHeader("Dependencies", colorize)...)
			emit(resultLine(report.FFmpeg, statusError, colorize))
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				if !dep.Available {
					emit(renderStatusLine("Missing", statusWarn, dep.Name+": "+dep.Description+" (install ffmpeg or set engine.ffmpeg_binary)", colorize))
				}
			}
			emit("")

			emit(renderSectionHeader("Environment", colorize)...)
			for _, result := range report.Checks {
				failKind := statusError
				if result.Name == "Speech synthesis" {
					failKind = statusWarn
				}
				emit(resultLine(result, failKind, colorize))
			}
			emit(renderStatusLine("Staging in use", statusInfo, fmt.Sprintf("%d engine directories", report.Staging), colorize))
			emit("")

			emit(renderSectionHeader("Render History", colorize)...)
			if libErr != nil {
				emit(renderStatusLine("Library", statusError, libErr.Error(), colorize))
				return nil
			}
			if len(report.Renders) == 0 {
				emit(renderStatusLine("Renders", statusInfo, "none recorded", colorize))
				return nil
			}
			keys := make([]string, 0, len(report.Renders))
			for k := range report.Renders {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				kind := statusInfo
				if k == string(library.StatusFailed) {
					kind = statusWarn
				}
				emit(renderStatusLine(k, kind, fmt.Sprintf("%d", report.Renders[k]), colorize))
			}
			return nil
		},
	}
}

func resultLine(result preflight.Result, failKind statusKind, colorize bool) string {
	kind := failKind
	if result.Passed {
		kind = statusOK
	}
	return renderStatusLine(result.Name, kind, result.Detail, colorize)
}
