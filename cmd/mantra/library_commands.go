package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mantra/internal/library"
)

type renderView struct {
	ID           string  `json:"id"`
	CreatedAt    string  `json:"created_at"`
	Source       string  `json:"source"`
	OutputPath   string  `json:"output_path,omitempty"`
	Beat         string  `json:"beat"`
	DelayMS      int     `json:"delay_ms"`
	Decay        float64 `json:"decay"`
	Mix          float64 `json:"mix"`
	Voice        float64 `json:"voice_volume"`
	Binaural     float64 `json:"binaural_volume"`
	DurationMS   int64   `json:"duration_ms"`
	Status       string  `json:"status"`
	ErrorKind    string  `json:"error_kind,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

func newRenderView(r library.Render) renderView {
	beat := r.Beat
	if beat == "" {
		beat = "none"
	}
	return renderView{
		ID:           r.ID,
		CreatedAt:    r.CreatedAt.UTC().Format(time.RFC3339),
		Source:       r.Source,
		OutputPath:   r.OutputPath,
		Beat:         beat,
		DelayMS:      r.Reverb.DelayMS,
		Decay:        r.Reverb.Decay,
		Mix:          r.Reverb.Mix,
		Voice:        r.Volumes.Voice,
		Binaural:     r.Volumes.Binaural,
		DurationMS:   r.Duration.Milliseconds(),
		Status:       string(r.Status),
		ErrorKind:    r.ErrorKind,
		ErrorMessage: r.ErrorMessage,
	}
}

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect render history",
	}

	libraryCmd.AddCommand(newLibraryListCommand(ctx))
	libraryCmd.AddCommand(newLibraryShowCommand(ctx))
	libraryCmd.AddCommand(newLibraryRemoveCommand(ctx))

	return libraryCmd
}

func newLibraryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withLibrary(func(store *library.Store) error {
				renders, err := store.List(cmd.Context(), limit, statuses...)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					views := make([]renderView, 0, len(renders))
					for _, r := range renders {
						views = append(views, newRenderView(r))
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(renders) == 0 {
					fmt.Fprintln(out, "No renders recorded")
					return nil
				}
				rows := make([][]string, 0, len(renders))
				for _, r := range renders {
					view := newRenderView(r)
					rows = append(rows, []string{
						shortID(r.ID),
						r.CreatedAt.Local().Format("2006-01-02 15:04"),
						view.Beat,
						formatClock(r.Duration),
						string(r.Status),
						r.Source,
					})
				}
				fmt.Fprint(out, renderTable(out,
					[]string{"ID", "Created", "Beat", "Length", "Status", "Source"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum renders to show (0 for all)")
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (running, succeeded, failed)")
	return cmd
}

func newLibraryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one render by id or unique id prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(store *library.Store) error {
				r, err := store.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				view := newRenderView(*r)
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Render:    %s\n", view.ID)
				fmt.Fprintf(out, "Created:   %s\n", r.CreatedAt.Local().Format(time.DateTime))
				fmt.Fprintf(out, "Status:    %s\n", view.Status)
				fmt.Fprintf(out, "Source:    %s\n", view.Source)
				fmt.Fprintf(out, "Beat:      %s\n", view.Beat)
				fmt.Fprintf(out, "Reverb:    %d ms, decay %s, mix %s\n", view.DelayMS, trimFloat(view.Decay), trimFloat(view.Mix))
				fmt.Fprintf(out, "Volumes:   voice %s, binaural %s\n", trimFloat(view.Voice), trimFloat(view.Binaural))
				fmt.Fprintf(out, "Length:    %s\n", formatClock(r.Duration))
				if view.OutputPath != "" {
					fmt.Fprintf(out, "Output:    %s\n", view.OutputPath)
				}
				if view.ErrorKind != "" {
					fmt.Fprintf(out, "Error:     [%s] %s\n", view.ErrorKind, view.ErrorMessage)
				}
				return nil
			})
		},
	}
}

func newLibraryRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Forget a render (the exported WAV is left in place)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(func(store *library.Store) error {
				r, err := store.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				removed, err := store.Remove(cmd.Context(), r.ID)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"id": r.ID, "removed": removed})
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed render %s\n", r.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Render %s was already gone\n", r.ID)
				}
				return nil
			})
		},
	}
}

func parseStatuses(values []string) ([]library.Status, error) {
	var statuses []library.Status
	for _, value := range values {
		switch status := library.Status(strings.ToLower(strings.TrimSpace(value))); status {
		case library.StatusRunning, library.StatusSucceeded, library.StatusFailed:
			statuses = append(statuses, status)
		case "":
		default:
			return nil, fmt.Errorf("unknown status %q (want running, succeeded, or failed)", value)
		}
	}
	return statuses, nil
}

func shortID(id string) string {
	if short, _, ok := strings.Cut(id, "-"); ok && short != "" {
		return short
	}
	return id
}
