package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"posecoach/internal/api"
	"posecoach/internal/capture"
	"posecoach/internal/config"
	"posecoach/internal/logging"
	"posecoach/internal/metronome"
	"posecoach/internal/pose"
	"posecoach/internal/scorer"
	"posecoach/internal/session"
)

// ErrLocked is returned by Start when another daemon holds the lock.
var ErrLocked = errors.New("another posecoach daemon instance is already running")

// Daemon runs one scoring session in the background and serves it.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	source     pose.Source
	sourceName string

	session   *session.Session
	exporter  *capture.Exporter
	metronome *metronome.Metronome
	hub       *scoreHub
	api       *apiServer
	unsub     func()

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	sessionID string
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	SessionID    string
	PoseSource   string
	LockFilePath string
	JointSet     string
	Session      session.Stats
	ExportBusy   bool
	LastExport   *capture.Asset
	BestExport   *capture.Asset
}

// New constructs a daemon around src. sourceName is reported in status.
func New(cfg *config.Config, src pose.Source, sourceName string, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || src == nil {
		return nil, errors.New("daemon requires config and pose source")
	}
	opts, err := session.OptionsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	sess, err := session.New(opts, logger)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	metro, err := metronome.New(cfg.Metronome.BPM, logger)
	if err != nil {
		return nil, fmt.Errorf("create metronome: %w", err)
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		source:     src,
		sourceName: sourceName,
		session:    sess,
		exporter:   capture.NewExporter(sess.Ribbon(), sess.Score, logger),
		metronome:  metro,
		hub:        newScoreHub(logger),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.unsub = sess.Subscribe(d.publishScore)
	d.api, err = newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, fmt.Errorf("create api server: %w", err)
	}
	return d, nil
}

// Start acquires the daemon lock, launches the frame loop and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}

	d.hub.reopen()
	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	loopDone := make(chan struct{})
	d.mu.Lock()
	d.ctx = runCtx
	d.cancel = cancel
	d.loopDone = loopDone
	d.sessionID, _ = logging.SessionIDFromContext(ctx)
	d.mu.Unlock()

	go func() {
		defer close(loopDone)
		if err := d.session.Run(runCtx, d.source); err != nil {
			d.logger.Error("frame loop failed", logging.Error(err))
		}
	}()
	go d.forwardTicks(runCtx)

	d.running.Store(true)
	d.logger.Info("posecoach daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldSource, d.sourceName),
	)
	return nil
}

// Stop ends the frame loop, the API server and the metronome, then releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.mu.Lock()
	cancel, loopDone := d.cancel, d.loopDone
	d.cancel = nil
	d.ctx = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if loopDone != nil {
		select {
		case <-loopDone:
		case <-time.After(5 * time.Second):
			d.logger.Warn("frame loop did not stop in time")
		}
	}
	d.metronome.Stop()
	d.api.stop()
	d.hub.closeAll()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("posecoach daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
	if closer, ok := d.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// LoopDone is closed when the current frame loop returns, for example when a
// file source is exhausted. It is nil before Start.
func (d *Daemon) LoopDone() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loopDone
}

// Session exposes the scoring session.
func (d *Daemon) Session() *session.Session {
	return d.session
}

// Exporter exposes the GIF exporter.
func (d *Daemon) Exporter() *capture.Exporter {
	return d.exporter
}

// Metronome exposes the metronome.
func (d *Daemon) Metronome() *metronome.Metronome {
	return d.metronome
}

// Addr returns the API listen address, or "" when the API is disabled.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	sessionID := d.sessionID
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		SessionID:    sessionID,
		PoseSource:   d.sourceName,
		LockFilePath: d.lockPath,
		JointSet:     d.session.Scorer().Config().Joints.Name,
		Session:      d.session.Stats(),
		ExportBusy:   d.exporter.Busy(),
		LastExport:   d.exporter.Last(),
		BestExport:   d.exporter.Best(),
	}
}

// runContext returns the context of the active run, or nil when stopped.
func (d *Daemon) runContext() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctx
}

func (d *Daemon) publishScore(r scorer.Result) {
	ev := api.FromResult(r)
	d.hub.broadcast(api.StreamMessage{Type: api.StreamScore, Score: &ev})
}

func (d *Daemon) forwardTicks(ctx context.Context) {
	ticks := d.metronome.Ticks()
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticks:
			ev := api.FromTick(tick)
			d.hub.broadcast(api.StreamMessage{Type: api.StreamTick, Tick: &ev})
		}
	}
}
