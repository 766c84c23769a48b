package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"posecoach/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var source, input, bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scoring daemon with its HTTP API",
		Long: "Run the posecoach daemon in the foreground. The daemon scores the configured\n" +
			"pose source, serves the ribbon, exports and metronome over HTTP, and streams\n" +
			"live scores over a websocket until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applySourceOverrides(base, source, input)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bind") {
				cfg.Paths.APIBind = strings.TrimSpace(bind)
			}
			out := cmd.OutOrStdout()
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: ctx.logLevel(),
				Stdin:    cmd.InOrStdin(),
				Ready: func(addr string) {
					if addr == "" {
						fmt.Fprintln(out, "posecoach daemon running (API disabled)")
						return
					}
					fmt.Fprintf(out, "posecoach daemon listening on http://%s\n", addr)
				},
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Pose source: synthetic, stdin, file, or command")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Frame file to replay (\"-\" for stdin)")
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind (empty disables the API)")
	return cmd
}
