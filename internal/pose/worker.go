package pose

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"posecoach/internal/logging"
)

// WorkerConfig describes an external estimator process. The process owns the
// camera and prints one frame per line on stdout in the DecodeFrame format.
type WorkerConfig struct {
	Command      string
	Args         []string
	RestartDelay time.Duration
	Logger       *slog.Logger
}

type estimate struct {
	pose *Pose
	err  error
}

// WorkerSource bridges an estimator subprocess into the frame loop. Only the
// most recent unread frame is kept; older unread frames are dropped so the
// loop always scores the freshest estimate.
type WorkerSource struct {
	cfg    WorkerConfig
	logger *slog.Logger

	mu      sync.Mutex
	latest  *estimate
	notify  chan struct{}
	cmd     *exec.Cmd
	running bool
	started time.Time
	exitErr error

	drops    atomic.Uint64
	restarts atomic.Uint64
}

// NewWorkerSource validates cfg; the process is started lazily by the first
// Estimate call.
func NewWorkerSource(cfg WorkerConfig) (*WorkerSource, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("pose worker command is required")
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = 2 * time.Second
	}
	return &WorkerSource{
		cfg:    cfg,
		logger: logging.NewComponentLogger(cfg.Logger, "pose-worker"),
		notify: make(chan struct{}, 1),
	}, nil
}

// Estimate waits for the next frame from the worker. While the process is
// restarting, or after it exits, it reports ErrNotReady.
func (w *WorkerSource) Estimate(ctx context.Context) (*Pose, error) {
	if err := w.ensureRunning(ctx); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.notify:
	}
	w.mu.Lock()
	next := w.latest
	w.latest = nil
	running := w.running
	exitErr := w.exitErr
	w.mu.Unlock()
	if next == nil {
		if !running {
			return nil, fmt.Errorf("pose worker exited (%v): %w", exitErr, ErrNotReady)
		}
		return nil, ErrNotReady
	}
	return next.pose, next.err
}

// Dropped reports how many frames were overwritten before being read.
func (w *WorkerSource) Dropped() uint64 {
	return w.drops.Load()
}

// Restarts reports how many times the worker process was relaunched.
func (w *WorkerSource) Restarts() uint64 {
	return w.restarts.Load()
}

func (w *WorkerSource) ensureRunning(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if !w.started.IsZero() && time.Since(w.started) < w.cfg.RestartDelay {
		return fmt.Errorf("pose worker restarting: %w", ErrNotReady)
	}
	if !w.started.IsZero() {
		w.restarts.Add(1)
	}
	w.started = time.Now()

	cmd := exec.CommandContext(ctx, w.cfg.Command, w.cfg.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("pose worker stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("pose worker stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		w.exitErr = err
		return fmt.Errorf("start pose worker %q: %v: %w", w.cfg.Command, err, ErrNotReady)
	}
	w.cmd = cmd
	w.running = true
	w.exitErr = nil
	w.logger.Info("pose worker started",
		logging.String("command", w.cfg.Command),
		logging.Int("pid", cmd.Process.Pid),
	)

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			p, err := DecodeFrame(line)
			w.publish(&estimate{pose: p, err: err})
		}
		// A scan error leaves stdout unread and the worker would block on its
		// next write. Kill it, then drain whatever its children still write so
		// the pipes reach EOF and the restart path takes over.
		if err := scanner.Err(); err != nil {
			logging.WarnWithContext(w.logger, "pose worker output unreadable", "pose_worker_output_invalid",
				logging.Error(err),
				logging.Int("max_line_bytes", maxLineBytes),
				logging.String(logging.FieldImpact, "the worker is stopped and restarted"),
				logging.String(logging.FieldErrorHint, "emit one frame per line, each under the line limit"),
			)
			_ = cmd.Process.Kill()
			_, _ = io.Copy(io.Discard, stdout)
		}
	}()
	go func() {
		defer readers.Done()
		w.logStderr(stderr)
	}()
	go func() {
		readers.Wait()
		err := cmd.Wait()
		w.mu.Lock()
		w.running = false
		w.exitErr = err
		w.mu.Unlock()
		if ctx.Err() != nil {
			w.logger.Debug("pose worker stopped", logging.Error(err))
		} else {
			logging.WarnWithContext(w.logger, "pose worker exited", "pose_worker_exited",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no poses until the worker restarts"),
				logging.String(logging.FieldErrorHint, "check the estimator command and its stderr output"),
			)
		}
		w.signal()
	}()
	return nil
}

func (w *WorkerSource) publish(e *estimate) {
	w.mu.Lock()
	if w.latest != nil {
		w.drops.Add(1)
	}
	w.latest = e
	w.mu.Unlock()
	w.signal()
}

func (w *WorkerSource) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *WorkerSource) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.Contains(upper, "[ERROR]"), strings.Contains(upper, "[CRITICAL]"):
			w.logger.Error("pose worker stderr", logging.String("line", line))
		case strings.Contains(upper, "[WARNING]"), strings.Contains(upper, "[WARN]"):
			w.logger.Warn("pose worker stderr", logging.String("line", line))
		default:
			w.logger.Debug("pose worker stderr", logging.String("line", line))
		}
	}
	if err := scanner.Err(); err != nil {
		w.logger.Debug("pose worker stderr unreadable, discarding the rest", logging.Error(err))
		_, _ = io.Copy(io.Discard, r)
	}
}
