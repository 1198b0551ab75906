package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mantra/internal/beats"
)

type profileView struct {
	Name        string  `json:"name"`
	Band        string  `json:"band"`
	BeatHz      float64 `json:"beat_hz"`
	LeftHz      float64 `json:"left_hz"`
	RightHz     float64 `json:"right_hz"`
	Description string  `json:"description"`
}

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "profiles",
		Short:       "List binaural beat profiles",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			views := make([]profileView, 0, len(beats.All()))
			for _, p := range beats.All() {
				left, right := p.Tones()
				views = append(views, profileView{
					Name:        string(p),
					Band:        p.Band(),
					BeatHz:      p.BeatHz(),
					LeftHz:      left,
					RightHz:     right,
					Description: p.Description(),
				})
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, views)
			}

			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					beats.Profile(v.Name).DisplayName(),
					v.Band,
					fmt.Sprintf("%g Hz", v.BeatHz),
					fmt.Sprintf("%g / %g Hz", v.LeftHz, v.RightHz),
					v.Description,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable(out,
				[]string{"Profile", "Band", "Beat", "Tones (L/R)", "Use"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
