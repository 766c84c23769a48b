package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"posecoach/internal/capture"
	"posecoach/internal/config"
	"posecoach/internal/daemonrun"
	"posecoach/internal/pose"
	"posecoach/internal/report"
	"posecoach/internal/ribbon"
	"posecoach/internal/session"
)

const progressTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.0f%%" "?"}} {{etime . "%s elapsed"}}`

type runOptions struct {
	source     string
	input      string
	frames     int
	gifPath    string
	gifSeconds float64
	gifFPS     float64
	gifScale   int
	ribbonPath string
	chartPath  string
	jsonOut    bool
	quiet      bool
}

type runResult struct {
	Source  string         `json:"source"`
	Elapsed string         `json:"elapsed"`
	Frames  int            `json:"frames"`
	Missed  int            `json:"missed"`
	Errors  int            `json:"errors"`
	Summary report.Summary `json:"summary"`
	GIF     *gifResult     `json:"gif,omitempty"`
	Ribbon  string         `json:"ribbon,omitempty"`
	Chart   string         `json:"chart,omitempty"`
}

type gifResult struct {
	Path   string  `json:"path"`
	Frames int     `json:"frames"`
	Score  float64 `json:"score"`
	Bytes  int     `json:"bytes"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score a session in the foreground",
		Long: "Score pose estimates from the configured source until it ends or Ctrl-C,\n" +
			"showing the live technique stability and a summary at the end.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForeground(cmd, ctx, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.source, "source", "", "Pose source: synthetic, stdin, file, or command")
	flags.StringVarP(&opts.input, "input", "i", "", "Frame file to replay (\"-\" for stdin)")
	flags.IntVar(&opts.frames, "frames", 0, "Stop a synthetic session after this many frames")
	flags.StringVar(&opts.gifPath, "gif", "", "Capture the ribbon to this GIF while scoring")
	flags.Float64Var(&opts.gifSeconds, "gif-seconds", 0, "GIF duration in seconds (default capture.seconds)")
	flags.Float64Var(&opts.gifFPS, "gif-fps", 0, "GIF sampling rate (default capture.fps)")
	flags.IntVar(&opts.gifScale, "gif-scale", 0, "GIF upscale factor (default capture.scale)")
	flags.StringVar(&opts.ribbonPath, "ribbon", "", "Write the final ribbon to this PNG")
	flags.StringVar(&opts.chartPath, "chart", "", "Write a score/heat chart to this PNG")
	flags.BoolVar(&opts.jsonOut, "json", false, "Print the summary as JSON")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable the live score line")
	return cmd
}

func runForeground(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
	base, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applySourceOverrides(base, opts.source, opts.input)
	if err != nil {
		return err
	}
	logger, err := ctx.newLogger(cfg, uuid.NewString())
	if err != nil {
		return err
	}

	src, sourceName, err := openRunSource(cfg, cmd.InOrStdin(), logger, opts.frames)
	if err != nil {
		return err
	}
	if closer, ok := src.(io.Closer); ok {
		defer closer.Close()
	}

	sessOpts, err := session.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	sess, err := session.New(sessOpts, logger)
	if err != nil {
		return err
	}
	collector := report.NewCollector()
	sess.Subscribe(collector.Observe)

	stdout := cmd.OutOrStdout()
	var live *liveLine
	if !opts.quiet && !opts.jsonOut && isTerminal(stdout) {
		live = newLiveLine(stdout, terminalWidth(stdout))
		sess.Subscribe(live.update)
	}

	runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg       sync.WaitGroup
		asset    *capture.Asset
		gifErr   error
		exporter = capture.NewExporter(sess.Ribbon(), sess.Score, logger)
	)
	if opts.gifPath != "" {
		req := capture.Request{
			Seconds: pick(opts.gifSeconds, cfg.Capture.Seconds),
			FPS:     pick(opts.gifFPS, cfg.Capture.FPS),
			Scale:   cfg.Capture.Scale,
		}
		if opts.gifScale > 0 {
			req.Scale = opts.gifScale
		}
		if _, _, err := capture.Plan(req.Seconds, req.FPS); err != nil {
			return err
		}
		if err := capture.CheckScale(req.Scale); err != nil {
			return fmt.Errorf("--gif-scale: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			asset, gifErr = exportWithProgress(runCtx, exporter, req, cmd.ErrOrStderr(), live == nil && !opts.jsonOut)
		}()
	}

	started := time.Now()
	runErr := sess.Run(runCtx, src)
	wg.Wait()
	if live != nil {
		live.finish()
	}
	if runErr != nil {
		return runErr
	}

	stats := sess.Stats()
	result := runResult{
		Source:  sourceName,
		Elapsed: time.Since(started).Round(time.Millisecond).String(),
		Frames:  stats.Frames,
		Missed:  stats.Missed,
		Errors:  stats.Errors,
		Summary: collector.Summary(),
	}

	if opts.gifPath != "" {
		if gifErr != nil {
			return fmt.Errorf("gif export: %w", gifErr)
		}
		if err := writeOutput(opts.gifPath, asset.Data); err != nil {
			return err
		}
		result.GIF = &gifResult{Path: opts.gifPath, Frames: asset.Frames, Score: asset.Score, Bytes: len(asset.Data)}
	}
	if opts.ribbonPath != "" {
		if err := writeRibbonPNG(opts.ribbonPath, sess); err != nil {
			return err
		}
		result.Ribbon = opts.ribbonPath
	}
	if opts.chartPath != "" {
		if err := writeChartPNG(opts.chartPath, collector.Points(), sessOpts); err != nil {
			return err
		}
		result.Chart = opts.chartPath
	}

	if opts.jsonOut {
		return writeJSON(cmd, result)
	}
	fmt.Fprintln(stdout, renderRunSummary(result))
	return nil
}

// applySourceOverrides returns a copy of cfg with the --source/--input flags
// applied and revalidated.
func applySourceOverrides(cfg *config.Config, source, input string) (*config.Config, error) {
	local := *cfg
	source = strings.ToLower(strings.TrimSpace(source))
	input = strings.TrimSpace(input)
	switch {
	case source == "" && input == "-":
		source = config.SourceStdin
	case source == "" && input != "":
		source = config.SourceFile
	}
	if source != "" {
		local.Pose.Source = source
	}
	if input != "" && input != "-" {
		expanded, err := config.ExpandPath(input)
		if err != nil {
			return nil, fmt.Errorf("resolve input: %w", err)
		}
		local.Pose.Path = expanded
	}
	if err := local.Validate(); err != nil {
		return nil, err
	}
	return &local, nil
}

func openRunSource(cfg *config.Config, stdin io.Reader, logger *slog.Logger, frames int) (pose.Source, string, error) {
	if cfg.Pose.Source == config.SourceSynthetic && frames > 0 {
		opts := pose.DefaultSyntheticOptions()
		opts.FPS = cfg.Pose.ReplayFPS
		opts.Frames = frames
		return pose.NewSyntheticSource(opts), config.SourceSynthetic, nil
	}
	return daemonrun.OpenSource(cfg, stdin, logger)
}

func exportWithProgress(ctx context.Context, exporter *capture.Exporter, req capture.Request, w io.Writer, showBar bool) (*capture.Asset, error) {
	if !showBar || !isTerminal(w) {
		return exporter.Export(ctx, req)
	}
	frames, _, err := capture.Plan(req.Seconds, req.FPS)
	if err != nil {
		return nil, err
	}
	bar := pb.ProgressBarTemplate(progressTemplate).New(frames)
	bar.SetWriter(w)
	bar.Set("prefix", "capture")
	bar.Start()
	defer bar.Finish()
	return exporter.Export(ctx, req, capture.WithProgress(func(done, total int) {
		bar.SetCurrent(int64(done))
	}))
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeRibbonPNG(path string, sess *session.Session) error {
	img, err := sess.Ribbon().Snapshot()
	if err != nil {
		return err
	}
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, ribbon.Annotate(img, report.Label(sess.Score()))); err != nil {
		return fmt.Errorf("encode ribbon: %w", err)
	}
	return f.Close()
}

func writeChartPNG(path string, points []report.Point, opts session.Options) error {
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.RenderChart(f, points, 0, 0, opts.Palette); err != nil {
		if errors.Is(err, report.ErrTooFewPoints) {
			_ = os.Remove(path)
		}
		return err
	}
	return f.Close()
}

func createOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

func renderRunSummary(r runResult) string {
	s := r.Summary
	pairs := [][2]string{
		{"Source", r.Source},
		{"Elapsed", r.Elapsed},
		{"Frames", fmt.Sprintf("%d", r.Frames)},
		{"Scored", fmt.Sprintf("%d", s.Frames)},
		{"Missed detections", fmt.Sprintf("%d", r.Missed)},
		{"Source errors", fmt.Sprintf("%d", r.Errors)},
		{"Final stability", fmt.Sprintf("%d%%", report.Percent(s.FinalScore))},
		{"Mean stability", fmt.Sprintf("%d%%", report.Percent(s.MeanScore))},
		{"Stable frames", fmt.Sprintf("%d (%d%%)", s.StableFrames, report.Percent(s.StableShare))},
		{"Longest stable run", fmt.Sprintf("%d", s.LongestStable)},
		{"Mean angle", fmt.Sprintf("%.1f°", s.MeanAngle)},
		{"Angle spread", fmt.Sprintf("%.1f°", s.AngleStdDev)},
	}
	if r.GIF != nil {
		pairs = append(pairs, [2]string{"GIF", fmt.Sprintf("%s (%d frames)", r.GIF.Path, r.GIF.Frames)})
	}
	if r.Ribbon != "" {
		pairs = append(pairs, [2]string{"Ribbon", r.Ribbon})
	}
	if r.Chart != "" {
		pairs = append(pairs, [2]string{"Chart", r.Chart})
	}
	return renderKeyValues("Session summary", pairs)
}

func pick(value, fallback float64) float64 {
	if value > 0 {
		return value
	}
	return fallback
}
