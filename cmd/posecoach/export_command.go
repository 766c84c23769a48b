package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const exportFileStem = "technique-heatmap"

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		seconds float64
		fps     float64
		scale   int
		output  string
		best    bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Capture the daemon's ribbon as an animated GIF",
		Long: "Ask the running daemon to capture the last few seconds of the ribbon and\n" +
			"save the GIF locally. With --best, download the highest-scoring export of\n" +
			"the current daemon session instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			var (
				info exportMeta
				data []byte
			)
			if best {
				i, d, err := client.Best(cmd.Context())
				if err != nil {
					return ctx.wrapAPIError(err)
				}
				info, data = exportMeta{id: i.ID, frames: i.Frames, percent: i.Percent}, d
			} else {
				i, d, err := client.Export(cmd.Context(), seconds, fps, scale)
				if err != nil {
					return ctx.wrapAPIError(err)
				}
				info, data = exportMeta{id: i.ID, frames: i.Frames, percent: i.Percent}, d
			}

			target := strings.TrimSpace(output)
			if target == "" {
				target = defaultExportPath(cfg.Paths.OutputDir, info.id, best)
			}
			if err := writeOutput(target, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d frames, technique stability %d%%)\n", target, info.frames, info.percent)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Float64Var(&seconds, "seconds", 0, "Capture duration (default capture.seconds)")
	flags.Float64Var(&fps, "fps", 0, "Capture sampling rate (default capture.fps)")
	flags.IntVar(&scale, "scale", 0, "Upscale factor (default capture.scale)")
	flags.StringVarP(&output, "output", "o", "", "Destination file (default <output_dir>/technique-heatmap-<id>.gif)")
	flags.BoolVar(&best, "best", false, "Download the best export instead of capturing")
	return cmd
}

type exportMeta struct {
	id      string
	frames  int
	percent int
}

func defaultExportPath(dir, id string, best bool) string {
	name := exportFileStem
	if short := shortID(id); short != "" {
		name += "-" + short
	}
	if best {
		name += "-best"
	}
	return filepath.Join(dir, name+".gif")
}
