package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"posecoach/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, session, export and metronome status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return ctx.wrapAPIError(err)
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw status JSON")
	return cmd
}

func renderStatus(s api.Status) string {
	var b strings.Builder

	daemonRows := [][2]string{
		{"Running", yesNo(s.Running)},
		{"PID", fmt.Sprintf("%d", s.PID)},
		{"Pose source", s.PoseSource},
		{"Lock file", s.LockFilePath},
	}
	if s.SessionID != "" {
		daemonRows = append(daemonRows, [2]string{"Session ID", s.SessionID})
	}
	b.WriteString(renderKeyValues("Daemon", daemonRows))
	b.WriteString("\n")

	sess := s.Session
	score := "-"
	if sess.Latest != nil {
		score = fmt.Sprintf("%d%%", sess.Latest.Percent)
	}
	sessionRows := [][2]string{
		{"Active", yesNo(sess.Active)},
		{"Joint set", sess.JointSet},
		{"Technique stability", score},
		{"Frames", fmt.Sprintf("%d", sess.Frames)},
		{"Scored", fmt.Sprintf("%d", sess.Scored)},
		{"Missed detections", fmt.Sprintf("%d", sess.Missed)},
		{"Source errors", fmt.Sprintf("%d", sess.Errors)},
	}
	if sess.StartedAt != "" {
		sessionRows = append(sessionRows, [2]string{"Started", sess.StartedAt})
	}
	b.WriteString(renderKeyValues("Session", sessionRows))
	b.WriteString("\n")

	rows := [][]string{
		exportRow("last", s.Export.Last),
		exportRow("best", s.Export.Best),
	}
	b.WriteString(renderTable([]string{"Export", "ID", "Score", "Frames", "Bytes", "Created"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}))
	if s.Export.Busy {
		b.WriteString("\nCapture in progress")
	}
	b.WriteString("\n")

	b.WriteString(renderKeyValues("Metronome", [][2]string{
		{"State", s.Metronome.State},
		{"BPM", fmt.Sprintf("%d", s.Metronome.BPM)},
		{"Dropped beats", fmt.Sprintf("%d", s.Metronome.Dropped)},
	}))
	return b.String()
}

func exportRow(label string, info *api.ExportInfo) []string {
	if info == nil {
		return []string{label, "-", "-", "-", "-", "-"}
	}
	return []string{
		label,
		shortID(info.ID),
		fmt.Sprintf("%d%%", info.Percent),
		fmt.Sprintf("%d", info.Frames),
		fmt.Sprintf("%d", info.Bytes),
		info.CreatedAt,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
