package daemonrun

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"posecoach/internal/config"
	"posecoach/internal/pose"
)

// fileSource replays a recorded session and owns the file handle.
type fileSource struct {
	*pose.StreamSource
	file *os.File
}

func (f *fileSource) Close() error {
	_ = f.StreamSource.Close()
	return f.file.Close()
}

// OpenSource builds the configured pose source. stdin is read when the
// source is "stdin". The returned name describes the source for status and
// logs. Sources that hold resources implement io.Closer.
func OpenSource(cfg *config.Config, stdin io.Reader, logger *slog.Logger) (pose.Source, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("config is required")
	}
	switch kind := strings.ToLower(strings.TrimSpace(cfg.Pose.Source)); kind {
	case config.SourceSynthetic, "":
		opts := pose.DefaultSyntheticOptions()
		opts.FPS = cfg.Pose.ReplayFPS
		return pose.NewSyntheticSource(opts), config.SourceSynthetic, nil
	case config.SourceStdin:
		if stdin == nil {
			stdin = os.Stdin
		}
		return pose.NewStreamSource(stdin, cfg.Pose.ReplayFPS), config.SourceStdin, nil
	case config.SourceFile:
		path, err := config.ExpandPath(cfg.Pose.Path)
		if err != nil {
			return nil, "", fmt.Errorf("resolve pose file: %w", err)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("open pose file: %w", err)
		}
		return &fileSource{StreamSource: pose.NewStreamSource(f, cfg.Pose.ReplayFPS), file: f}, "file:" + path, nil
	case config.SourceCommand:
		src, err := pose.NewWorkerSource(pose.WorkerConfig{
			Command:      cfg.Pose.Command,
			Args:         cfg.Pose.Args,
			RestartDelay: cfg.RestartDelay(),
			Logger:       logger,
		})
		if err != nil {
			return nil, "", err
		}
		return src, "command:" + cfg.Pose.Command, nil
	default:
		return nil, "", fmt.Errorf("unsupported pose source %q", cfg.Pose.Source)
	}
}
