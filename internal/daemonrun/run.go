package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"posecoach/internal/config"
	"posecoach/internal/daemon"
	"posecoach/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Stdin feeds the "stdin" pose source; nil means os.Stdin.
	Stdin io.Reader
	// Ready, when set, receives the API address once the daemon is serving.
	Ready func(addr string)
}

// Run starts the posecoach daemon and blocks until SIGINT/SIGTERM or ctx ends.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	sessionID := uuid.NewString()
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("posecoachd-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		Development:      opts.Development,
		Run:              logging.RunInfoFromConfig(cfg, sessionID),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	fileLogger, fileErr := logging.New(logging.Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
		Run:              logging.RunInfoFromConfig(cfg, sessionID),
	})
	if fileErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize run log: %v\n", fileErr)
	} else {
		logger = logging.TeeLogger(logger, fileLogger.Handler())
		if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to update posecoachd.log link: %v\n", err)
		}
	}

	logConfigSnapshot(logger, cfg)
	pidPath := filepath.Join(cfg.Paths.StateDir, "posecoach.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	src, sourceName, err := OpenSource(cfg, opts.Stdin, logger)
	if err != nil {
		logger.Error("open pose source", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, src, sourceName, logger)
	if err != nil {
		if closer, ok := src.(io.Closer); ok {
			_ = closer.Close()
		}
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	runCtx := logging.WithSessionID(signalCtx, sessionID)
	if err := d.Start(runCtx); err != nil {
		hint := "check configuration and the API bind address"
		if errors.Is(err, daemon.ErrLocked) {
			hint = "stop the other posecoach daemon or use a different state_dir"
		}
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "no session is running"),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d.Addr())
	}

	<-signalCtx.Done()
	logger.Info("posecoach daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "posecoachd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String(logging.FieldSource, cfg.Pose.Source),
		logging.String("joint_set", cfg.Scoring.JointSet),
		logging.Int("window", cfg.Scoring.Window),
		logging.Float64("variance_max", cfg.Scoring.VarianceMax),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_present", cfg.Paths.APIToken != ""),
		logging.Float64("capture_seconds", cfg.Capture.Seconds),
		logging.Float64("capture_fps", cfg.Capture.FPS),
	)
}
