package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"posecoach/internal/api"
	"posecoach/internal/metronome"
)

func newMetronomeCommand(ctx *commandContext) *cobra.Command {
	var (
		bpm    int
		beats  int
		remote string
		quiet  bool
	)
	cmd := &cobra.Command{
		Use:   "metronome",
		Short: "Beat a tempo locally or control the daemon metronome",
		Long: "Without --remote, beat locally until --beats ticks or Ctrl-C.\n" +
			"With --remote start|stop|toggle|status, control the daemon's metronome.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("bpm") {
				bpm = 0
			}
			if action := strings.ToLower(strings.TrimSpace(remote)); action != "" {
				return remoteMetronome(cmd, ctx, action, bpm)
			}
			if bpm == 0 {
				bpm = cfg.Metronome.BPM
			}
			return localMetronome(cmd, ctx, bpm, beats, quiet)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&bpm, "bpm", metronome.DefaultBPM, fmt.Sprintf("Tempo in beats per minute (%d-%d, default metronome.bpm)", metronome.MinBPM, metronome.MaxBPM))
	flags.IntVar(&beats, "beats", 0, "Stop after this many beats (0 runs until interrupted)")
	flags.StringVar(&remote, "remote", "", "Control the daemon metronome: start, stop, toggle, or status")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Do not ring the terminal bell")
	return cmd
}

func localMetronome(cmd *cobra.Command, ctx *commandContext, bpm, beats int, quiet bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.newLogger(cfg, "")
	if err != nil {
		return err
	}
	m, err := metronome.New(bpm, logger)
	if err != nil {
		return err
	}
	runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	bell := !quiet && isTerminal(out)
	m.Start(runCtx)
	defer m.Stop()

	count := 0
	for {
		select {
		case <-runCtx.Done():
			return nil
		case tick := <-m.Ticks():
			count++
			prefix := ""
			if bell {
				prefix = "\a"
			}
			fmt.Fprintf(out, "%sbeat %d (%d bpm)\n", prefix, tick.Seq, tick.BPM)
			if beats > 0 && count >= beats {
				return nil
			}
		}
	}
}

func remoteMetronome(cmd *cobra.Command, ctx *commandContext, action string, bpm int) error {
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}
	var status api.MetronomeStatus
	switch action {
	case "status":
		if bpm != 0 {
			status, err = client.Metronome(cmd.Context(), api.MetronomeRequest{BPM: bpm})
		} else {
			var s api.Status
			s, err = client.Status(cmd.Context())
			status = s.Metronome
		}
	case api.MetronomeStart, api.MetronomeStop, api.MetronomeToggle:
		status, err = client.Metronome(cmd.Context(), api.MetronomeRequest{Action: action, BPM: bpm})
	default:
		return fmt.Errorf("unknown metronome action %q (want start, stop, toggle, or status)", action)
	}
	if err != nil {
		return ctx.wrapAPIError(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Metronome %s at %d bpm\n", status.State, status.BPM)
	return nil
}
